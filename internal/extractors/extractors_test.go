package extractors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"canales-taurinos/pkg/models"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func strPtr(s string) *string { return &s }

func TestBroadcastsExtract(t *testing.T) {
	got, err := NewBroadcasts("https://elmuletazo.com/agenda-de-toros-en-television/").Extract(readFixture(t, "transmisiones.html"))
	require.NoError(t, err)

	want := []models.Broadcast{
		{
			Date:        "Viernes 26 de diciembre de 2025",
			Description: "— Corrida especial desde la Monumental de Frascuelo, en directo por Canal Sur",
			Links: []models.Link{
				{Label: "Canal Sur", URL: "https://www.canalsur.es/television/directo"},
				{Label: "CMM", URL: "https://www.cmmedia.es/directo"},
			},
		},
		{
			Date:        "Sábado 27 de diciembre de 2025",
			Description: "Festival benéfico en Illescas CMM",
			Links: []models.Link{
				{Label: "CMM", URL: "https://www.cmmedia.es/directo"},
				{Label: "PULSE AQUÍ", URL: "https://elmuletazo.com/enlace/illescas"},
			},
		},
		{
			Date:        models.UnknownDate,
			Description: "Resumen de la temporada en OneToro, programa especial sin fecha confirmada",
			Links: []models.Link{
				{Label: "https://onetoro.tv/directo", URL: "https://onetoro.tv/directo"},
			},
		},
		{
			Date:        models.UnknownDate,
			Description: "compartir",
			Links: []models.Link{
				{Label: "https://onetoro.tv/directo", URL: "https://onetoro.tv/directo"},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("broadcasts mismatch (-want +got):\n%s", diff)
	}
}

func TestBroadcastsDescriptionPlaceholder(t *testing.T) {
	got, err := NewBroadcasts("https://elmuletazo.com/").Extract(
		`<p class="has-text-align-justify">Lunes 5 de enero de 2026</p>`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, models.UnknownDescription, got[0].Description)
	require.Empty(t, got[0].Links)
}

func TestCalendarExtract(t *testing.T) {
	got, err := NewCalendar("https://www.servitoro.com/es/calendario-taurino").Extract(readFixture(t, "servitoro.html"))
	require.NoError(t, err)

	want := []models.CalendarEvent{
		{
			Date:     "Domingo 19 de abril 2026",
			City:     "Sevilla",
			Name:     "Corrida de toros de la Feria de Abril",
			Category: "Corrida de toros",
			Location: "Real Maestranza de Caballería",
			Link:     strPtr("https://www.servitoro.com/es/entradas/sevilla-feria-abril"),
		},
		{
			Date:     "Viernes 15 de mayo 2026",
			City:     "Madrid",
			Name:     "San Isidro, novillada",
			Category: models.UnknownCategory,
			Location: "Las Ventas",
		},
		{
			Date:     "Sábado 16 de mayo 2026",
			City:     models.UnknownCity,
			Name:     "Rejones",
			Category: models.UnknownCategory,
			Link:     strPtr("https://tickets.example.com/rejones"),
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("calendar mismatch (-want +got):\n%s", diff)
	}
}

func TestRankingExtract(t *testing.T) {
	got, err := NewRanking().Extract(readFixture(t, "escalafon.html"))
	require.NoError(t, err)

	want := []models.RankingEntry{
		{Position: "1", Name: "Morante de la Puebla", Feats: "43", Ears: "52", Tails: "3"},
		{Position: "2", Name: "Roca Rey", Feats: "38", Ears: "47", Tails: "0"},
		{Position: "4", Name: "Borja Jiménez", Feats: "0", Ears: "0", Tails: "0"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}
}

func TestRankingExtractAriaGrid(t *testing.T) {
	got, err := NewRanking().Extract(readFixture(t, "escalafon_aria.html"))
	require.NoError(t, err)
	require.Equal(t, []models.RankingEntry{
		{Position: "1", Name: "Alejandro Talavante", Feats: "31", Ears: "33", Tails: "2"},
	}, got)
}

func TestRankingFallsBackToFirstPopulatedTable(t *testing.T) {
	html := `<table><thead><tr><th>#</th><th>Nombre</th></tr></thead>
		<tbody><tr><td>1</td><td>Daniel Luque</td><td></td><td></td><td>1</td></tr></tbody></table>`
	got, err := NewRanking().Extract(html)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Daniel Luque", got[0].Name)
	require.Equal(t, "1", got[0].Tails)
}

func TestChroniclesExtract(t *testing.T) {
	got, err := NewChronicles("https://desdelcallejon.com/cronicas-de-festejos/").Extract(readFixture(t, "cronicas.html"))
	require.NoError(t, err)

	want := []models.Chronicle{
		{
			Title:   "Crónica de Valencia: puerta grande",
			Link:    "https://desdelcallejon.com/cronica-valencia/",
			Excerpt: "Tarde de triunfo en la plaza de la calle Xàtiva.",
		},
		{
			Title:   "Castellón, la Magdalena",
			Link:    "https://desdelcallejon.com/cronica-castellon/",
			Excerpt: "Oreja para el local.",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("chronicles mismatch (-want +got):\n%s", diff)
	}
}

// Empty or unrelated markup is never an error, only an empty result
func TestExtractorsTolerateEmptyInput(t *testing.T) {
	for _, html := range []string{"", "<html><body><p>Mantenimiento</p></body></html>"} {
		b, err := NewBroadcasts("https://elmuletazo.com/").Extract(html)
		require.NoError(t, err)
		require.NotNil(t, b)
		require.Empty(t, b)

		c, err := NewCalendar("https://www.servitoro.com/").Extract(html)
		require.NoError(t, err)
		require.Empty(t, c)

		r, err := NewRanking().Extract(html)
		require.NoError(t, err)
		require.Empty(t, r)

		ch, err := NewChronicles("https://desdelcallejon.com/").Extract(html)
		require.NoError(t, err)
		require.Empty(t, ch)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	html := readFixture(t, "escalafon.html")
	first, err := NewRanking().Extract(html)
	require.NoError(t, err)
	second, err := NewRanking().Extract(html)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
