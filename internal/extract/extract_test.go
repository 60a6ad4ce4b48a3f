package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
)

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	assert.NoError(t, err)
	return doc
}

func TestFromSelection(t *testing.T) {
	doc := docFromHTML(t, `
		<table class="list"><tbody>
			<tr>
				<td>1</td>
				<td><a href="View.do?seq=10" title="서초 봄꽃 축제 안내">서초 봄꽃 축제...</a></td>
				<td>문화행사과</td>
				<td>2025-04-01</td>
			</tr>
		</tbody></table>`)

	row := doc.Find("table.list tbody tr").First()
	fields := FromSelection(row, Config{
		Title: "td:nth-child(2) a",
		Date:  "td:nth-child(4)",
		Link:  "td:nth-child(2) a",
	})

	// title attribute wins over truncated anchor text
	assert.Equal(t, "서초 봄꽃 축제 안내", fields.Title)
	assert.Equal(t, "2025-04-01", fields.DateText)
	assert.Equal(t, "View.do?seq=10", fields.Link)
	assert.Empty(t, fields.Description)
}

func TestFromSelectionMissingMatches(t *testing.T) {
	doc := docFromHTML(t, `<div class="item"><span>no anchor here</span></div>`)
	fields := FromSelection(doc.Find("div.item"), Config{
		Title: "a.title",
		Date:  ".date",
		Link:  "a.title",
	})

	// Missing matches yield absent values, not errors
	assert.Empty(t, fields.Title)
	assert.Empty(t, fields.DateText)
	assert.Empty(t, fields.Link)
}

func TestMeaningfulTitle(t *testing.T) {
	assert.True(t, MeaningfulTitle("봄꽃 축제"))
	assert.True(t, MeaningfulTitle("ab"))
	assert.False(t, MeaningfulTitle(""))
	assert.False(t, MeaningfulTitle("-"))
	assert.False(t, MeaningfulTitle("♦ ★"))
	assert.False(t, MeaningfulTitle("a"))
}

func TestFindItemsPrimary(t *testing.T) {
	doc := docFromHTML(t, `
		<ul class="events">
			<li class="row">one</li>
			<li class="row">two</li>
		</ul>`)

	sel, used := FindItems(doc, "ul.events li.row")
	assert.Equal(t, 2, sel.Length())
	assert.Equal(t, "ul.events li.row", used)
}

func TestFindItemsFallbackSwitch(t *testing.T) {
	// Primary matches nothing; a known fallback matches 4 rows and the
	// extraction switches to it.
	doc := docFromHTML(t, `
		<table><tbody>
			<tr><td>a</td></tr>
			<tr><td>b</td></tr>
			<tr><td>c</td></tr>
			<tr><td>d</td></tr>
		</tbody></table>`)

	sel, used := FindItems(doc, "div.no-such-list .item")
	assert.Equal(t, 4, sel.Length())
	assert.Equal(t, "table tbody tr", used)
}

func TestFindItemsNothingMatches(t *testing.T) {
	doc := docFromHTML(t, `<p>empty page</p>`)
	sel, used := FindItems(doc, "div.list .item")
	assert.Equal(t, 0, sel.Length())
	assert.Equal(t, "div.list .item", used)
}
