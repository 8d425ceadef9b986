package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapHTMLEmbedsHeaderFields(t *testing.T) {
	header := HeaderContext{
		OrganizationLogoURL: "https://org.example/logo.png",
		ParentLogoURL:       "https://stakflo.example/logo.png",
		PolicyTitle:         "Code of Conduct",
		CompanyName:         "Acme Corp",
	}

	wrapped := WrapHTML("<p>body</p>", header)

	assert.Contains(t, wrapped, header.OrganizationLogoURL)
	assert.Contains(t, wrapped, header.ParentLogoURL)
	assert.Contains(t, wrapped, header.PolicyTitle)
	assert.Contains(t, wrapped, header.CompanyName)
	assert.Contains(t, wrapped, "<p>body</p>")
}

func TestVisibleTextStripsTagsAndScripts(t *testing.T) {
	html := `<html><head><style>.x{color:red}</style></head>
<body><script>alert(1)</script><h1>Title</h1><p>Hello   world</p></body></html>`

	text := VisibleText(html)

	assert.NotContains(t, text, "<")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "Hello world")
}

func TestVisibleTextCollapsesBlankLines(t *testing.T) {
	html := "<p>a</p>\n\n\n\n<p>b</p>"
	text := VisibleText(html)
	assert.Equal(t, 2, len(strings.Split(text, "\n")))
}
