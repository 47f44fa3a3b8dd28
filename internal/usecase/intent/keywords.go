package intent

// Keyword maps a French query word to an event genre label.
// A Generic keyword only counts when no specific keyword matched, so
// "concert de jazz" yields Jazz rather than Music and Jazz.
type Keyword struct {
	Word    string
	Genre   string
	Generic bool
}

// DefaultKeywords is the genre lookup table in match order.
//
// Matching is not a plain table scan: the generic Music entries contribute their
// label only when no specific entry matched, so "concert de jazz" reads as
// [Jazz], not [Music Jazz]. A query with only generic words still yields [Music].
func DefaultKeywords() []Keyword {
	return []Keyword{
		{Word: "musique", Genre: "Music", Generic: true},
		{Word: "musical", Genre: "Music", Generic: true},
		{Word: "musicale", Genre: "Music", Generic: true},
		{Word: "concert", Genre: "Music", Generic: true},
		{Word: "rock", Genre: "Rock"},
		{Word: "jazz", Genre: "Jazz"},
		{Word: "rap", Genre: "Hip-Hop/Rap"},
		{Word: "classique", Genre: "Classical"},
		{Word: "electro", Genre: "Dance/Electronic"},
		{Word: "pop", Genre: "Pop"},
		{Word: "metal", Genre: "Metal"},
		{Word: "chanson", Genre: "Chanson Francaise"},
		{Word: "blues", Genre: "Blues"},
		{Word: "reggae", Genre: "Reggae"},
		{Word: "theatre", Genre: "Theatre"},
		{Word: "théâtre", Genre: "Theatre"},
		{Word: "danse", Genre: "Dance"},
		{Word: "ballet", Genre: "Dance"},
		{Word: "opera", Genre: "Opera"},
		{Word: "opéra", Genre: "Opera"},
		{Word: "comedie", Genre: "Comedy"},
		{Word: "comédie", Genre: "Comedy"},
		{Word: "humour", Genre: "Comedy"},
		{Word: "humoriste", Genre: "Comedy"},
		{Word: "cirque", Genre: "Circus & Specialty Acts"},
		{Word: "magie", Genre: "Magic & Illusion"},
		{Word: "sport", Genre: "Sports"},
		{Word: "sportif", Genre: "Sports"},
		{Word: "sportive", Genre: "Sports"},
		{Word: "football", Genre: "Soccer"},
		{Word: "foot", Genre: "Soccer"},
		{Word: "rugby", Genre: "Rugby"},
		{Word: "basket", Genre: "Basketball"},
		{Word: "tennis", Genre: "Tennis"},
		{Word: "handball", Genre: "Handball"},
		{Word: "lutte", Genre: "Wrestling"},
		{Word: "famille", Genre: "Family"},
		{Word: "enfant", Genre: "Children's Theatre"},
		{Word: "festival", Genre: "Fairs & Festivals"},
	}
}
