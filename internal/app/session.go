package app

import "sync/atomic"

// Session tracks whether a local player session is active. Popups are shown
// only while it is. Safe for concurrent use.
type Session struct {
	active atomic.Bool
	team   atomic.Int64
}

func NewSession(active bool, team int) *Session {
	s := &Session{}
	s.active.Store(active)
	s.team.Store(int64(team))

	return s
}

func (s *Session) Active() bool {
	return s.active.Load()
}

func (s *Session) Team() int {
	return int(s.team.Load())
}

func (s *Session) SetActive(active bool) {
	s.active.Store(active)
}

func (s *Session) SetTeam(team int) {
	s.team.Store(int64(team))
}
