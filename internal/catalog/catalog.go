// Package catalog deriva os conjuntos de métricas e alarmes esperados a
// partir da quantidade de sensores de tiro instalados.
package catalog

import (
	"fmt"

	"digil_monitor/internal/models"
)

// AlarmPrefix namespace fixo das variáveis de alarme
const AlarmPrefix = "EGM_OUT_SENS_23_VAR_"

// DefaultCardinality usada quando o parâmetro não é informado
const DefaultCardinality = 6

var (
	weatherMetrics = []string{
		"EIT_WINDVEL", "EIT_WINDDIR1", "EIT_HUMIDITY",
		"EIT_TEMPERATURE", "EIT_PIROMETER",
	}

	junctionBoxMetrics = []string{
		"EIT_ACCEL_X", "EIT_ACCEL_Y", "EIT_ACCEL_Z",
		"EIT_INCLIN_X", "EIT_INCLIN_Y",
	}

	loadPoints = []string{"04", "08", "12"}
	loadSides  = []string{"A", "B"}
	loadLines  = []string{"L1", "L2"}

	// Nomes amigáveis das variáveis de alarme
	alarmLabels = map[string]string{
		AlarmPrefix + "32": "TC_F12A_L1",
		AlarmPrefix + "33": "TC_F12A_L2",
		AlarmPrefix + "34": "TC_F12B_L1",
		AlarmPrefix + "35": "TC_F12B_L2",
		AlarmPrefix + "36": "TC_F4A_L1",
		AlarmPrefix + "37": "TC_F4A_L2",
		AlarmPrefix + "38": "TC_F4B_L1",
		AlarmPrefix + "39": "TC_F4B_L2",
		AlarmPrefix + "40": "TC_F8A_L1",
		AlarmPrefix + "41": "TC_F8A_L2",
		AlarmPrefix + "42": "TC_F8B_L1",
		AlarmPrefix + "43": "TC_F8B_L2",
		AlarmPrefix + "30": "Inc_X",
		AlarmPrefix + "31": "Inc_Y",
		AlarmPrefix + "7":  "Channel",
	}
)

// Catalog conjunto imutável de identificadores esperados em uma sessão
type Catalog struct {
	cardinality int
	weather     []string
	junctionBox []string
	load        []string
	alarms      []string
	categories  map[string]models.Category
}

// Derive monta o catálogo para a quantidade de sensores informada.
// Qualquer valor diferente de 3 ou 6 é tratado como 12.
func Derive(cardinality int) Catalog {
	c := Catalog{
		cardinality: Normalize(cardinality),
		weather:     append([]string(nil), weatherMetrics...),
		junctionBox: append([]string(nil), junctionBoxMetrics...),
	}

	var indices []int
	switch c.cardinality {
	case 3:
		c.load = []string{loadID("04", "A", "L1"), loadID("08", "A", "L1"), loadID("12", "A", "L1")}
		indices = []int{32, 36, 40}
	case 6:
		for _, point := range loadPoints {
			for _, side := range loadSides {
				c.load = append(c.load, loadID(point, side, "L1"))
			}
		}
		indices = []int{32, 34, 36, 38, 40, 42}
	default:
		for _, point := range loadPoints {
			for _, side := range loadSides {
				for _, line := range loadLines {
					c.load = append(c.load, loadID(point, side, line))
				}
			}
		}
		for i := 32; i <= 43; i++ {
			indices = append(indices, i)
		}
	}

	for _, idx := range indices {
		c.alarms = append(c.alarms, AlarmID(idx))
	}

	c.categories = make(map[string]models.Category, len(c.weather)+len(c.junctionBox)+len(c.load))
	for _, id := range c.weather {
		c.categories[id] = models.CategoryWeather
	}
	for _, id := range c.junctionBox {
		c.categories[id] = models.CategoryJunctionBox
	}
	for _, id := range c.load {
		c.categories[id] = models.CategoryLoad
	}

	return c
}

// Normalize reduz a cardinalidade a um dos valores suportados
func Normalize(cardinality int) int {
	switch cardinality {
	case 3, 6:
		return cardinality
	default:
		return 12
	}
}

// AlarmID expande um índice de variável com o namespace de alarmes
func AlarmID(index int) string {
	return fmt.Sprintf("%s%d", AlarmPrefix, index)
}

func loadID(point, side, line string) string {
	return fmt.Sprintf("EIT_LOAD_%s_%s_%s", point, side, line)
}

// Cardinality retorna a cardinalidade efetiva
func (c Catalog) Cardinality() int {
	return c.cardinality
}

// MetricIDs retorna as métricas esperadas na ordem meteo, junction box, tiro
func (c Catalog) MetricIDs() []string {
	ids := make([]string, 0, len(c.weather)+len(c.junctionBox)+len(c.load))
	ids = append(ids, c.weather...)
	ids = append(ids, c.junctionBox...)
	return append(ids, c.load...)
}

// AlarmIDs retorna os alarmes esperados
func (c Catalog) AlarmIDs() []string {
	return append([]string(nil), c.alarms...)
}

// Expected retorna os identificadores esperados de um tipo
func (c Catalog) Expected(kind models.Kind) []string {
	if kind == models.KindAlarm {
		return c.AlarmIDs()
	}
	return c.MetricIDs()
}

// LoadIDs retorna as métricas dos sensores de tiro
func (c Catalog) LoadIDs() []string {
	return append([]string(nil), c.load...)
}

// CategoryOf classifica uma métrica; métricas fora do catálogo são unknown
func (c Catalog) CategoryOf(id string) models.Category {
	if cat, ok := c.categories[id]; ok {
		return cat
	}
	return models.CategoryUnknown
}

// AlarmLabel retorna o nome amigável de um alarme, ou o próprio id
func AlarmLabel(id string) string {
	if label, ok := alarmLabels[id]; ok {
		return label
	}
	return id
}
