package ui

import "igaudit/pkg/store"

// Observer is a view fed by store changes
type Observer interface {
	Observe(c store.Change)
}

// Attach feeds every change committed to st into obs and returns a
// function detaching it
func Attach(st store.Store, obs Observer) func() {
	return st.Subscribe(obs.Observe)
}
