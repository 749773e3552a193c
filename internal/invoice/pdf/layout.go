package pdf

import "github.com/go-pdf/fpdf"

// cursor tracks the vertical write position and breaks pages when a block
// would cross the bottom margin.
type cursor struct {
	pdf    *fpdf.Fpdf
	top    float64
	bottom float64
	// onNewPage redraws repeated furniture such as table headers.
	onNewPage func()
}

func newCursor(pdf *fpdf.Fpdf) *cursor {
	_, pageH := pdf.GetPageSize()
	_, top, _, bottom := pdf.GetMargins()
	return &cursor{pdf: pdf, top: top, bottom: pageH - bottom}
}

func (c *cursor) y() float64 { return c.pdf.GetY() }

func (c *cursor) advance(h float64) { c.pdf.SetY(c.pdf.GetY() + h) }

func (c *cursor) moveTo(y float64) { c.pdf.SetY(y) }

// remaining is the space left above the bottom margin.
func (c *cursor) remaining() float64 { return c.bottom - c.pdf.GetY() }

// ensure starts a new page when h does not fit. It reports whether a page
// was added.
func (c *cursor) ensure(h float64) bool {
	if c.pdf.GetY()+h <= c.bottom {
		return false
	}
	c.pdf.AddPage()
	c.pdf.SetY(c.top)
	if c.onNewPage != nil {
		c.onNewPage()
	}
	return true
}
