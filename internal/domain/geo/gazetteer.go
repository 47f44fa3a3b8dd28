// Package geo resolves city names to coordinates and computes great-circle distances.
package geo

import (
	"sort"
	"strings"
)

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Gazetteer maps normalized (lowercase, trimmed) city names to coordinates.
// It is built once and only read afterwards.
type Gazetteer struct {
	cities map[string]Point
	names  []string // longest first
}

// NewGazetteer builds a gazetteer from name→point pairs. Names are normalized;
// later duplicates overwrite earlier ones.
func NewGazetteer(cities map[string]Point) Gazetteer {
	norm := make(map[string]Point, len(cities))
	for name, p := range cities {
		if key := normalize(name); key != "" {
			norm[key] = p
		}
	}

	names := make([]string, 0, len(norm))
	for name := range norm {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	return Gazetteer{cities: norm, names: names}
}

// Coordinates looks a city up, ignoring case and surrounding whitespace.
func (g Gazetteer) Coordinates(city string) (Point, bool) {
	key := normalize(city)
	if key == "" {
		return Point{}, false
	}
	p, ok := g.cities[key]
	return p, ok
}

// Names returns the normalized city names, longest first. Scanning in this order
// keeps "saint-denis" from being shadowed by a shorter name it contains.
func (g Gazetteer) Names() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

// Len returns the number of known names.
func (g Gazetteer) Len() int { return len(g.cities) }

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DefaultGazetteer returns the built-in table of French cities, including the
// venue-address variants seen in listing feeds ("toulouse cedex 5", "st herblain").
func DefaultGazetteer() Gazetteer {
	return NewGazetteer(map[string]Point{
		"paris":                   {48.8566, 2.3522},
		"marseille":               {43.2965, 5.3698},
		"lyon":                    {45.7640, 4.8357},
		"toulouse":                {43.6047, 1.4442},
		"nice":                    {43.7102, 7.2620},
		"nantes":                  {47.2184, -1.5536},
		"strasbourg":              {48.5734, 7.7521},
		"montpellier":             {43.6108, 3.8767},
		"bordeaux":                {44.8378, -0.5792},
		"lille":                   {50.6292, 3.0573},
		"rennes":                  {48.1173, -1.6778},
		"reims":                   {49.2583, 3.2794},
		"toulon":                  {43.1242, 5.9280},
		"saint-etienne":           {45.4397, 4.3872},
		"le havre":                {49.4944, 0.1079},
		"grenoble":                {45.1885, 5.7245},
		"dijon":                   {47.3220, 5.0415},
		"angers":                  {47.4784, -0.5632},
		"nimes":                   {43.8367, 4.3601},
		"clermont-ferrand":        {45.7772, 3.0870},
		"clermont ferrand":        {45.7772, 3.0870},
		"aix-en-provence":         {43.5297, 5.4474},
		"brest":                   {48.3904, -4.4861},
		"tours":                   {47.3941, 0.6848},
		"amiens":                  {49.8941, 2.2958},
		"limoges":                 {45.8315, 1.2578},
		"perpignan":               {42.6986, 2.8956},
		"metz":                    {49.1193, 6.1757},
		"besancon":                {47.2378, 6.0241},
		"orleans":                 {47.9029, 1.9093},
		"rouen":                   {49.4432, 1.0999},
		"caen":                    {49.1829, -0.3707},
		"nancy":                   {48.6921, 6.1844},
		"avignon":                 {43.9493, 4.8055},
		"poitiers":                {46.5802, 0.3404},
		"cannes":                  {43.5528, 7.0174},
		"pau":                     {43.2951, -0.3708},
		"la rochelle":             {46.1603, -1.1511},
		"saint-malo":              {48.6493, -2.0007},
		"biarritz":                {43.4832, -1.5586},
		"colmar":                  {48.0794, 7.3588},
		"ajaccio":                 {41.9192, 8.7386},
		"dunkerque":               {51.0343, 2.3768},
		"valence":                 {44.9334, 4.8924},
		"troyes":                  {48.2973, 4.0744},
		"chambery":                {45.5646, 5.9178},
		"annecy":                  {45.8992, 6.1294},
		"saint-denis":             {48.9362, 2.3574},
		"boulogne-billancourt":    {48.8397, 2.2399},
		"boulogne billancourt":    {48.8397, 2.2399},
		"marne-la-vallee":         {48.8527, 2.7732},
		"marne la vallee":         {48.8527, 2.7732},
		"marne la vallee cedex 4": {48.8527, 2.7732},
		"st herblain":             {47.2122, -1.6497},
		"saint-herblain":          {47.2122, -1.6497},
		"toulouse cedex 5":        {43.6047, 1.4442},
	})
}
