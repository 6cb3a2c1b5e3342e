package models

// Placeholders used when a field could not be extracted
const (
	UnknownDate        = "Fecha no especificada"
	UnknownDescription = "Descripción no disponible"
	UnknownCity        = "Ciudad no especificada"
	UnknownCategory    = "No especificada"
)

// Link is an outbound link found next to a listing
type Link struct {
	Label string `json:"texto"`
	URL   string `json:"url"`
}

// Broadcast is one televised event from the TV agenda
type Broadcast struct {
	Date        string `json:"fecha"`
	Description string `json:"descripcion"`
	Links       []Link `json:"enlaces"`
}

// CalendarEvent is one entry of the ticketing calendar
type CalendarEvent struct {
	Date     string  `json:"fecha"`
	City     string  `json:"ciudad"`
	Name     string  `json:"nombreEvento"`
	Category string  `json:"categoria"`
	Location string  `json:"location"`
	Link     *string `json:"link"`
}

// RankingEntry is one row of the bullfighter ranking. Numeric columns are
// decimal strings to keep the persisted schema stable.
type RankingEntry struct {
	Position string `json:"posicion"`
	Name     string `json:"lidiador"`
	Feats    string `json:"festejos"`
	Ears     string `json:"orejas"`
	Tails    string `json:"rabos"`
}

// Chronicle is a published report of a past event
type Chronicle struct {
	Title   string `json:"titulo"`
	Link    string `json:"enlace"`
	Excerpt string `json:"extracto"`
}

// RegionalEvent comes from the hand-maintained regional data files
type RegionalEvent struct {
	Date         string   `json:"fecha"`
	Description  string   `json:"descripcion,omitempty"`
	Ranch        string   `json:"ganaderia,omitempty"`
	Bullfighters []string `json:"toreros,omitempty"`
	Time         string   `json:"hora,omitempty"`
	City         string   `json:"ciudad,omitempty"`
}
