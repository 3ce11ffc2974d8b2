package web

// MenuLink is one sidebar entry.
type MenuLink struct {
	Href   string
	Title  string
	Active bool
}

// HeaderData is rendered by the shared header partial on every page.
type HeaderData struct {
	LoggedIn  bool
	Username  string
	RoleLabel string
	// Region is the role region revealed on the page ("admin", "assembler", "producer").
	Region string
	Menu   []MenuLink
}

// Flash is the one-shot message carried on a redirect.
type Flash struct {
	Notice  string
	Error   string
	Missing []string
}

// Page wraps shared Header + page-specific Content.
type Page[T any] struct {
	Header  HeaderData
	Flash   Flash
	Content T
}
