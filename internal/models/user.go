package models

type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserSession is what login and registration return.
type UserSession struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (s UserSession) UserID() int {
	return s.User.ID
}

type GameStats struct {
	Wins       *int `json:"wins,omitempty"`
	Losses     *int `json:"losses,omitempty"`
	Draws      *int `json:"draws,omitempty"`
	TotalGames *int `json:"totalGames,omitempty"`
}

// Total is recomputed from the counters; TotalGames from the wire is ignored.
func (s GameStats) Total() int {
	return deref(s.Wins) + deref(s.Losses) + deref(s.Draws)
}

func (s GameStats) WinCount() int  { return deref(s.Wins) }
func (s GameStats) LossCount() int { return deref(s.Losses) }
func (s GameStats) DrawCount() int { return deref(s.Draws) }

type StatsResponse struct {
	Stats GameStats `json:"stats"`
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func IntPtr(v int) *int {
	return &v
}
