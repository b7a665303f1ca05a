package leaderboard

// Countback holds the tie-break totals shown in the score link's tooltip.
type Countback struct {
	Back9 *float64 `json:"back9"`
	Back6 *float64 `json:"back6"`
	Back3 *float64 `json:"back3"`
	Back1 *float64 `json:"back1"`
}

// Entry is one player's normalized result. Each layout fills a known
// subset of the optional fields and leaves the rest nil.
type Entry struct {
	Position        int        `json:"position"`
	Name            string     `json:"name"`
	HandicapIndex   *float64   `json:"handicapindex"`
	CourseHandicap  *float64   `json:"coursehandicap"`
	PlayingHandicap *float64   `json:"playinghandicap"`
	Latest          *int       `json:"latest"`
	Total           *int       `json:"total"`
	Thru            *int       `json:"thru"`
	Final           *int       `json:"final"`
	Score           *int       `json:"score"`
	R1              *int       `json:"r1,omitempty"`
	R2              *int       `json:"r2,omitempty"`
	Countback       *Countback `json:"countback,omitempty"`
	Status          *string    `json:"status,omitempty"`
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	out := e
	out.HandicapIndex = cloneFloat(e.HandicapIndex)
	out.CourseHandicap = cloneFloat(e.CourseHandicap)
	out.PlayingHandicap = cloneFloat(e.PlayingHandicap)
	out.Latest = cloneInt(e.Latest)
	out.Total = cloneInt(e.Total)
	out.Thru = cloneInt(e.Thru)
	out.Final = cloneInt(e.Final)
	out.Score = cloneInt(e.Score)
	out.R1 = cloneInt(e.R1)
	out.R2 = cloneInt(e.R2)
	if e.Countback != nil {
		out.Countback = &Countback{
			Back9: cloneFloat(e.Countback.Back9),
			Back6: cloneFloat(e.Countback.Back6),
			Back3: cloneFloat(e.Countback.Back3),
			Back1: cloneFloat(e.Countback.Back1),
		}
	}
	if e.Status != nil {
		s := *e.Status
		out.Status = &s
	}
	return out
}

// Result is the output of one extraction.
type Result struct {
	Competition string  `json:"competition"`
	Variant     Variant `json:"layout"`
	Entries     []Entry `json:"entries"`
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
