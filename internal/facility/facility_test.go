package facility

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/randytsao24/carefinder/internal/location"
	"github.com/randytsao24/carefinder/internal/models"
	"github.com/randytsao24/carefinder/internal/overpass"
)

var anchor = models.Coordinates{Latitude: 12.9718, Longitude: 79.1589}

func ptr(v float64) *float64 { return &v }

func node(id int64, lat, lon float64, tags map[string]string) overpass.Element {
	return overpass.Element{Type: "node", ID: id, Lat: ptr(lat), Lon: ptr(lon), Tags: tags}
}

// offset returns a point roughly km kilometers north of anchor
func offset(km float64) models.Coordinates {
	return models.Coordinates{Latitude: anchor.Latitude + km/111.195, Longitude: anchor.Longitude}
}

func TestNormalize(t *testing.T) {
	elements := []overpass.Element{
		node(1, 12.97, 79.15, map[string]string{"amenity": "hospital", "name": "CMC", "addr:street": "Ida Scudder Road", "addr:city": "Vellore"}),
		node(2, 12.97, 79.15, map[string]string{"amenity": "pharmacy", "name": "Apollo Pharmacy"}),
		node(3, 12.97, 79.15, nil),
		{Type: "way", ID: 4, Center: &overpass.Center{Lat: 12.98, Lon: 79.16}, Tags: map[string]string{"healthcare": "clinic"}},
		{Type: "relation", ID: 5, Tags: map[string]string{"amenity": "clinic", "name": "No Geometry"}},
		node(6, 12.96, 79.14, map[string]string{"amenity": "clinic", "healthcare": "hospital", "name": "Both"}),
	}

	got := Normalize(elements)
	if len(got) != 3 {
		t.Fatalf("got %d facilities, want 3: %+v", len(got), got)
	}

	tests := []struct {
		id       string
		name     string
		category models.Category
		address  string
	}{
		{"node/1", "CMC", models.CategoryHospital, "Ida Scudder Road, Vellore"},
		{"way/4", "Clinic", models.CategoryClinic, NoAddress},
		{"node/6", "Both", models.CategoryHospital, NoAddress},
	}
	for i, tt := range tests {
		f := got[i]
		if f.ID != tt.id || f.Name != tt.name || f.Category != tt.category || f.Address != tt.address {
			t.Errorf("facility %d = %+v, want id=%s name=%s category=%s address=%q", i, f, tt.id, tt.name, tt.category, tt.address)
		}
		if f.IsPriority {
			t.Errorf("facility %d from the index must not be priority", i)
		}
	}
	if got[1].Coordinates != (models.Coordinates{Latitude: 12.98, Longitude: 79.16}) {
		t.Errorf("way should use its center, got %+v", got[1].Coordinates)
	}
}

func TestFormatAddressOrder(t *testing.T) {
	tags := map[string]string{
		"addr:postcode":    "632004",
		"addr:state":       "Tamil Nadu",
		"addr:city":        "Vellore",
		"addr:street":      "Main Road",
		"addr:housenumber": "12",
	}
	want := "12, Main Road, Vellore, Tamil Nadu, 632004"
	if got := FormatAddress(tags); got != want {
		t.Errorf("FormatAddress = %q, want %q", got, want)
	}
}

func TestMergeInclusionRadius(t *testing.T) {
	near := models.Facility{ID: "o1", Name: "Naruvi Hospitals", Coordinates: offset(4.0)}
	far := models.Facility{ID: "o2", Name: "Distant Care", Coordinates: offset(6.0)}
	normalized := []models.Facility{{ID: "node/1", Name: "CMC", Coordinates: offset(1)}}

	got := Merge(normalized, []models.Facility{near, far}, anchor, MergeOptions{})

	if len(got) != 2 {
		t.Fatalf("got %d facilities, want 2: %+v", len(got), got)
	}
	if got[0].ID != "node/1" {
		t.Errorf("normalized facilities must come first, got %s", got[0].ID)
	}
	if got[1].ID != "o1" || !got[1].IsPriority {
		t.Errorf("in-range override missing or not priority: %+v", got[1])
	}
}

func TestMergeFirstTokenFalsePositive(t *testing.T) {
	// Known limitation: the shared "City" token hides an unrelated override.
	normalized := []models.Facility{
		{ID: "node/1", Name: "City Hospital", Coordinates: offset(1)},
		{ID: "node/2", Name: "City Hospital", Coordinates: offset(1.5)},
	}
	override := models.Facility{ID: "o1", Name: "City Medical College", Coordinates: offset(2)}

	got := Merge(normalized, []models.Facility{override}, anchor, MergeOptions{})
	if len(got) != 2 {
		t.Fatalf("override should be suppressed by first-token match, got %+v", got)
	}

	got = Merge(normalized, []models.Facility{override}, anchor, MergeOptions{IsDuplicate: ExactNameMatch})
	if len(got) != 3 {
		t.Errorf("exact matching should keep the override, got %d facilities", len(got))
	}
}

func TestDuplicatePredicates(t *testing.T) {
	base := models.Facility{Name: "Government Hospital", Coordinates: anchor}

	tests := []struct {
		name      string
		fn        DuplicateFunc
		candidate models.Facility
		want      bool
	}{
		{"first token substring", FirstTokenMatch, models.Facility{Name: "government clinic"}, true},
		{"first token abbreviation misses", FirstTokenMatch, models.Facility{Name: "Govt. Hospital"}, false},
		{"first token empty name", FirstTokenMatch, models.Facility{Name: "   "}, false},
		{"exact ignores case and spacing", ExactNameMatch, models.Facility{Name: " government   HOSPITAL "}, true},
		{"exact differs", ExactNameMatch, models.Facility{Name: "Government Hospital Annex"}, false},
		{"proximity close", ProximityNameMatch, models.Facility{Name: "Government Hospital", Coordinates: offset(0.02)}, true},
		{"proximity far", ProximityNameMatch, models.Facility{Name: "Government Hospital", Coordinates: offset(0.5)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(base, tt.candidate); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDuplicateStrategy(t *testing.T) {
	for _, name := range []string{"", "first-token", "exact", "proximity"} {
		if _, err := DuplicateStrategy(name); err != nil {
			t.Errorf("DuplicateStrategy(%q): %v", name, err)
		}
	}
	if _, err := DuplicateStrategy("fuzzy"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestRankSortsAndTruncates(t *testing.T) {
	var facilities []models.Facility
	for i := 15; i > 0; i-- {
		facilities = append(facilities, models.Facility{
			ID:          fmt.Sprintf("f%d", i),
			Coordinates: offset(float64(i) * 0.3),
		})
	}

	got := Rank(facilities, anchor, 0)
	if len(got) != DefaultLimit {
		t.Fatalf("got %d, want %d", len(got), DefaultLimit)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].DistanceKm > got[i].DistanceKm {
			t.Fatalf("results not sorted at %d: %v > %v", i, got[i-1].DistanceKm, got[i].DistanceKm)
		}
	}
	for _, f := range got {
		want := location.HaversineKm(anchor, f.Coordinates)
		if f.DistanceKm < 0 || math.Abs(f.DistanceKm-want) > 1e-6*want {
			t.Errorf("%s: DistanceKm = %v, want %v", f.ID, f.DistanceKm, want)
		}
	}
	if facilities[0].DistanceKm != 0 {
		t.Error("Rank must not modify its input")
	}
}

func TestRankStableTies(t *testing.T) {
	same := offset(1)
	facilities := []models.Facility{
		{ID: "a", Coordinates: same},
		{ID: "b", Coordinates: same},
		{ID: "c", Coordinates: offset(0.5)},
		{ID: "d", Coordinates: same},
	}
	got := Rank(facilities, anchor, 10)
	var ids []string
	for _, f := range got {
		ids = append(ids, f.ID)
	}
	if strings.Join(ids, "") != "cabd" {
		t.Errorf("order = %v, want [c a b d]", ids)
	}
}

func TestMergeOverridesDedupAgainstEachOther(t *testing.T) {
	overrides := []models.Facility{
		{ID: "o1", Name: "Apollo Clinic", Coordinates: offset(1)},
		{ID: "o2", Name: "Apollo Hospital", Coordinates: offset(2)},
		{ID: "o3", Name: "Naruvi Hospitals", Coordinates: offset(3)},
	}

	got := Merge(nil, overrides, anchor, MergeOptions{})
	if len(got) != 2 || got[0].ID != "o1" || got[1].ID != "o3" {
		t.Fatalf("Merge = %+v, want o1 and o3", got)
	}
	for i := range got {
		for j := i + 1; j < len(got); j++ {
			if FirstTokenMatch(got[i], got[j]) || FirstTokenMatch(got[j], got[i]) {
				t.Errorf("%s and %s are duplicates", got[i].Name, got[j].Name)
			}
		}
	}
}

func TestDirectionsURL(t *testing.T) {
	f := models.Facility{Coordinates: models.Coordinates{Latitude: 12.9249, Longitude: 79.1354}}
	want := "https://www.openstreetmap.org/directions?from=12.9718,79.1589&to=12.9249,79.1354"
	if got := DirectionsURL("", anchor, f); got != want {
		t.Errorf("DirectionsURL = %q, want %q", got, want)
	}
	if got := DirectionsURL("https://maps.example/", anchor, f); !strings.HasPrefix(got, "https://maps.example/directions?") {
		t.Errorf("custom base not honored: %q", got)
	}
}

func TestGeoJSON(t *testing.T) {
	facilities := []models.Facility{{ID: "node/1", Name: "CMC", Coordinates: offset(1), DistanceKm: 1}}
	fc := GeoJSON("", anchor, facilities)

	if fc.Type != "FeatureCollection" || len(fc.Features) != 2 {
		t.Fatalf("unexpected collection: %+v", fc)
	}
	if fc.Features[0].Properties["kind"] != "anchor" {
		t.Error("first feature should be the anchor")
	}
	props := fc.Features[1].Properties
	if props["name"] != "CMC" || props["directions"] == "" {
		t.Errorf("facility properties = %+v", props)
	}
}
