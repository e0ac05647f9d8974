package validation

import (
	"testing"

	"digil_monitor/internal/models"
)

func boolPtr(b bool) *bool { return &b }

func TestAnnotate(t *testing.T) {
	cases := []struct {
		name string
		desc *models.ValidationDescriptor
		want models.ValidationAnnotation
	}{
		{
			name: "no descriptor",
			desc: nil,
			want: models.ValidationAnnotation{State: models.ValidationFlagMissing, Message: DefaultMissingMessage},
		},
		{
			name: "confirmed by vendor",
			desc: &models.ValidationDescriptor{Valid: boolPtr(true), VendorName: "ACME", FlagTimestamp: "12:00:00"},
			want: models.ValidationAnnotation{State: models.ValidationConfirmed, Vendor: "ACME", FlagTimestamp: "12:00:00"},
		},
		{
			name: "valid without vendor",
			desc: &models.ValidationDescriptor{Valid: boolPtr(true), Message: "sem fornecedor"},
			want: models.ValidationAnnotation{State: models.ValidationFlagMissing, Message: "sem fornecedor"},
		},
		{
			name: "explicitly not valid",
			desc: &models.ValidationDescriptor{Valid: boolPtr(false), VendorName: "ACME", Message: "rejeitado"},
			want: models.ValidationAnnotation{State: models.ValidationUnconfirmed, Vendor: "ACME", Message: "rejeitado"},
		},
		{
			name: "empty descriptor",
			desc: &models.ValidationDescriptor{},
			want: models.ValidationAnnotation{State: models.ValidationFlagMissing, Message: DefaultMissingMessage},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Annotate(tc.desc); got != tc.want {
				t.Fatalf("expected %+v; got %+v", tc.want, got)
			}
		})
	}
}
