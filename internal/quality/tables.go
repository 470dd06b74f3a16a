package quality

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCategory is the bucket used when nothing more specific matches.
const DefaultCategory = "Events"

// CategoryKeywords maps one category to the keywords that indicate it.
type CategoryKeywords struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Tables is the keyword data the classifier and validator run on.
// Values are copied on construction so callers may reuse or mutate their own copy.
type Tables struct {
	// Labels maps a lowercased source label to a category name.
	Labels map[string]string `yaml:"labels"`
	// Categories are scanned in order; the first category with a hit wins.
	Categories         []CategoryKeywords `yaml:"categories"`
	Suspicious         []string           `yaml:"suspicious"`
	MovieMarkers       []string           `yaml:"movie_markers"`
	ReRelease          []string           `yaml:"rerelease"`
	ReReleaseOverrides []string           `yaml:"rerelease_overrides"`
	Images             ImageRules         `yaml:"images"`
}

// DefaultTables returns the shipped keyword tables.
func DefaultTables() Tables {
	return Tables{
		Labels: map[string]string{
			"concerts":      "Music",
			"music":         "Music",
			"comedy":        "Comedy",
			"standup":       "Comedy",
			"workshops":     "Workshops",
			"education":     "Workshops",
			"food":          "Food & Drinks",
			"drinks":        "Food & Drinks",
			"food & drinks": "Food & Drinks",
			"adventure":     "Adventure",
			"spiritual":     "Spirituality",
			"spirituality":  "Spirituality",
			"yoga":          "Spirituality",
			"exhibitions":   "Exhibitions",
			"kids":          "Kids",
			"shopping":      "Shopping",
			"movies":        "Movies",
			"cinema":        "Movies",
			"film":          "Movies",
		},
		Categories: []CategoryKeywords{
			{Name: "Music", Keywords: []string{
				"music", "concert", "gig", "dj", "band", "singer", "festival", "jazz", "rock", "techno", "edm",
			}},
			{Name: "Comedy", Keywords: []string{"comedy", "standup", "stand-up", "comic", "open mic"}},
			{Name: "Workshops", Keywords: []string{
				"workshop", "class", "learn", "course", "masterclass", "training", "pottery", "painting",
			}},
			{Name: "Food & Drinks", Keywords: []string{
				"food", "drink", "dining", "wine", "beer", "brunch", "tasting", "culinary",
			}},
			{Name: "Adventure", Keywords: []string{"trek", "adventure", "camping", "hiking", "expedition", "cycling"}},
			{Name: "Spirituality", Keywords: []string{"yoga", "spiritual", "meditation", "retreat", "wellness"}},
			{Name: "Exhibitions", Keywords: []string{"exhibition", "art", "gallery", "museum", "expo", "trade fair"}},
			{Name: "Kids", Keywords: []string{"circus", "kids", "children", "toddler", "family fun"}},
			{Name: "Shopping", Keywords: []string{"shopping", "flea", "bazaar", "pop-up", "popup", "sale"}},
			{Name: "Movies", Keywords: []string{"movie", "cinema", "film", "now showing"}},
		},
		Suspicious:   []string{"test", "dummy", "placeholder", "asdf"},
		MovieMarkers: []string{"movie", "cinema"},
		ReRelease: []string{
			"re-release", "rerelease", "anniversary screening", "special screening",
			"classic", "old movie", "reliving the magic", "back in cinemas",
		},
		ReReleaseOverrides: []string{"premiere", "festival"},
		Images:             DefaultImageRules(),
	}
}

// LoadTables reads tables from a YAML file. Sections left empty in the file keep their defaults.
func LoadTables(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("read keyword tables %s: %w", path, err)
	}

	var fromFile Tables
	if unmarshalErr := yaml.Unmarshal(data, &fromFile); unmarshalErr != nil {
		return Tables{}, fmt.Errorf("parse keyword tables %s: %w", path, unmarshalErr)
	}

	tables := DefaultTables()
	if len(fromFile.Labels) > 0 {
		tables.Labels = fromFile.Labels
	}
	if len(fromFile.Categories) > 0 {
		tables.Categories = fromFile.Categories
	}
	if len(fromFile.Suspicious) > 0 {
		tables.Suspicious = fromFile.Suspicious
	}
	if len(fromFile.MovieMarkers) > 0 {
		tables.MovieMarkers = fromFile.MovieMarkers
	}
	if len(fromFile.ReRelease) > 0 {
		tables.ReRelease = fromFile.ReRelease
	}
	if len(fromFile.ReReleaseOverrides) > 0 {
		tables.ReReleaseOverrides = fromFile.ReReleaseOverrides
	}
	tables.Images = tables.Images.merge(fromFile.Images)

	return tables, nil
}

func (t Tables) clone() Tables {
	out := Tables{
		Labels:             make(map[string]string, len(t.Labels)),
		Categories:         make([]CategoryKeywords, len(t.Categories)),
		Suspicious:         append([]string(nil), t.Suspicious...),
		MovieMarkers:       append([]string(nil), t.MovieMarkers...),
		ReRelease:          append([]string(nil), t.ReRelease...),
		ReReleaseOverrides: append([]string(nil), t.ReReleaseOverrides...),
		Images:             t.Images.clone(),
	}
	for k, v := range t.Labels {
		out.Labels[strings.ToLower(strings.TrimSpace(k))] = v
	}
	for i, c := range t.Categories {
		out.Categories[i] = CategoryKeywords{Name: c.Name, Keywords: append([]string(nil), c.Keywords...)}
	}
	return out
}
