package game

// View is a read-only projection of engine state for the rendering
// layer: serializable markup plus flags, no live references.
type View struct {
	Version string  `json:"version"`
	ID      int     `json:"id"`
	Loading bool    `json:"loading"`
	Failed  bool    `json:"failed"`
	Error   string  `json:"error,omitempty"`
	Solved  bool    `json:"solved"`
	Title   string  `json:"title,omitempty"` // withheld until solved
	HTML    string  `json:"html,omitempty"`
	Guesses []Guess `json:"guesses"`
	Focus   int     `json:"focus"` // index of the focused word token, -1 if none
}

// View snapshots the current state. The returned value shares nothing
// with the live session.
func (e *Engine) View() *View {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := &View{Loading: e.loading, Focus: -1, Guesses: []Guess{}}
	if e.loadErr != nil {
		v.Failed = true
		v.Error = e.loadErr.Error()
	}
	if e.session == nil {
		return v
	}

	s := e.session
	v.Version = s.Version
	v.ID = s.ID
	v.Solved = s.Solved
	if s.Solved {
		v.Title = s.Article.Title
	}
	v.HTML = s.Article.Doc.RenderHTML()
	for _, g := range s.Guesses {
		cp := *g
		cp.Words = append([]string(nil), g.Words...)
		v.Guesses = append(v.Guesses, cp)
	}
	for i, w := range s.Article.Doc.Words() {
		if w.Focused {
			v.Focus = i
			break
		}
	}
	return v
}
