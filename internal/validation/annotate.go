// Package validation classifica o descritor de validação dos alarmes.
package validation

import (
	"digil_monitor/internal/models"
)

// DefaultMissingMessage texto usado quando a flag de validação não chegou
const DefaultMissingMessage = "Flag de validação ausente"

// Annotate deriva a anotação a partir do descritor opcional.
// valid=true exige fornecedor; sem ele a flag é considerada ausente.
func Annotate(desc *models.ValidationDescriptor) models.ValidationAnnotation {
	if desc == nil {
		return models.ValidationAnnotation{
			State:   models.ValidationFlagMissing,
			Message: DefaultMissingMessage,
		}
	}

	switch {
	case desc.Valid != nil && *desc.Valid && desc.VendorName != "":
		return models.ValidationAnnotation{
			State:         models.ValidationConfirmed,
			Vendor:        desc.VendorName,
			FlagTimestamp: desc.FlagTimestamp,
		}
	case desc.Valid != nil && !*desc.Valid:
		return models.ValidationAnnotation{
			State:   models.ValidationUnconfirmed,
			Vendor:  desc.VendorName,
			Message: desc.Message,
		}
	default:
		msg := desc.Message
		if msg == "" {
			msg = DefaultMissingMessage
		}
		return models.ValidationAnnotation{
			State:   models.ValidationFlagMissing,
			Message: msg,
		}
	}
}
