package ingest

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"testportal/internal/testpool"
)

// Cell is one <td> of a source table: its whitespace-normalized text and
// the href of the first anchor inside it, "" when none.
type Cell struct {
	Text string
	Href string
}

type Row struct {
	Cells []Cell
}

type Table struct {
	Rows []Row
}

// Document is the parsed table structure of one uploaded HTML file.
// Hand-authored documents routinely contain several tables; rows keep
// document order so batch reports can reference them by index.
type Document struct {
	Tables []Table
}

func ParseDocument(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc := &Document{}
	walkElements(root, "table", func(tableNode *html.Node) {
		table := Table{}
		walkElements(tableNode, "tr", func(rowNode *html.Node) {
			row := Row{}
			walkElements(rowNode, "td", func(cellNode *html.Node) {
				row.Cells = append(row.Cells, Cell{
					Text: testpool.NormalizeCell(textContent(cellNode)),
					Href: firstAnchorHref(cellNode),
				})
			})
			table.Rows = append(table.Rows, row)
		})
		doc.Tables = append(doc.Tables, table)
	})
	return doc, nil
}

// walkElements calls fn for every element named tag under n, without
// descending into matches (a <td> inside a nested table belongs to that
// table's own rows).
func walkElements(n *html.Node, tag string, fn func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			fn(c)
			continue
		}
		walkElements(c, tag, fn)
	}
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteString(" ")
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return sb.String()
}

func firstAnchorHref(n *html.Node) string {
	var href string
	var visit func(*html.Node) bool
	visit = func(node *html.Node) bool {
		if node.Type == html.ElementNode && node.Data == "a" {
			for _, attr := range node.Attr {
				if attr.Key == "href" {
					href = strings.TrimSpace(attr.Val)
					return true
				}
			}
			return true
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if visit(c) {
				return true
			}
		}
		return false
	}
	visit(n)
	return href
}
