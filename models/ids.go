package models

func (u User) GetID() string            { return u.ID }
func (p Project) GetID() string         { return p.ID }
func (s Stage) GetID() string           { return s.ID }
func (t Task) GetID() string            { return t.ID }
func (c CommentTask) GetID() string     { return c.ID }
func (f File) GetID() string            { return f.ID }
func (d DownloadHistory) GetID() string { return d.ID }
func (b BrochureProject) GetID() string { return b.ID }
func (p BrochurePage) GetID() string    { return p.ID }
func (c PageComment) GetID() string     { return c.ID }
func (l Lead) GetID() string            { return l.ID }
func (m Meeting) GetID() string         { return m.ID }
