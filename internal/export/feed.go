// Package export renders compiled filters as a Gmail filter import feed.
package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/solatis/gfb/internal/query"
)

/*
 * Gmail import feed.
 *
 * One Atom <entry> per compiled query. Every entry of a label carries the
 * same label and action properties:
 *
 *   <apps:property name="hasTheWord" value="(query)"/>
 *   <apps:property name="label" value="Label"/>
 *   <apps:property name="shouldArchive" value="true"/>
 *   <apps:property name="sizeOperator" value="s_sl"/>
 *   <apps:property name="sizeUnit" value="s_smb"/>
 *
 * Entry ids are derived from the export time in 100ns ticks plus the entry
 * position, so they are unique within one feed and increase across feeds.
 */

const (
	atomNamespace = "http://www.w3.org/2005/Atom"
	appsNamespace = "http://schemas.google.com/apps/2006"
	idPrefix      = "tag:mail.google.com,2008:filter"
	timeLayout    = "2006-01-02T15:04:05Z"
)

// Feed is the root element of an import file.
type Feed struct {
	XMLName   xml.Name `xml:"feed"`
	Xmlns     string   `xml:"xmlns,attr"`
	XmlnsApps string   `xml:"xmlns:apps,attr"`
	Title     string   `xml:"title"`
	ID        string   `xml:"id"`
	Updated   string   `xml:"updated"`
	Entries   []Entry  `xml:"entry"`
}

// Entry is one Gmail filter.
type Entry struct {
	Category   Category   `xml:"category"`
	Title      string     `xml:"title"`
	ID         string     `xml:"id"`
	Updated    string     `xml:"updated"`
	Content    string     `xml:"content"`
	Properties []Property `xml:"apps:property"`
}

// Category marks an entry as a filter.
type Category struct {
	Term string `xml:"term,attr"`
}

// Property is a name/value pair of a filter entry.
type Property struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// Build assembles the feed for filters, stamped with now.
func Build(filters []*query.CompiledFilter, now time.Time) *Feed {
	now = now.UTC()
	updated := now.Format(timeLayout)
	base := now.UnixNano() / 100

	feed := &Feed{
		Xmlns:     atomNamespace,
		XmlnsApps: appsNamespace,
		Title:     "Mail Filters",
		Updated:   updated,
	}

	var ids []string
	for _, f := range filters {
		actions := make([]Property, 0, len(f.Actions))
		for _, a := range f.Actions {
			if name := a.XMLProperty(); name != "" {
				actions = append(actions, Property{Name: name, Value: "true"})
			}
		}

		for _, q := range f.Queries {
			id := strconv.FormatInt(base+int64(len(ids)), 10)
			ids = append(ids, id)

			props := make([]Property, 0, len(actions)+4)
			props = append(props,
				Property{Name: "hasTheWord", Value: "(" + q + ")"},
				Property{Name: "label", Value: f.Label},
			)
			props = append(props, actions...)
			props = append(props,
				Property{Name: "sizeOperator", Value: "s_sl"},
				Property{Name: "sizeUnit", Value: "s_smb"},
			)

			feed.Entries = append(feed.Entries, Entry{
				Category:   Category{Term: "filter"},
				Title:      "Mail Filter",
				ID:         idPrefix + ":" + id,
				Updated:    updated,
				Properties: props,
			})
		}
	}

	feed.ID = idPrefix + "s:" + strings.Join(ids, ",")
	return feed
}

// Write encodes filters as an indented feed document to w.
func Write(w io.Writer, filters []*query.CompiledFilter, now time.Time) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write feed header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(Build(filters, now)); err != nil {
		return fmt.Errorf("failed to encode feed: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("failed to write feed: %w", err)
	}
	return nil
}

// WriteFile writes the feed to path, expanding a leading "~/" to the home
// directory and creating missing parent directories.
func WriteFile(path string, filters []*query.CompiledFilter, now time.Time) (string, error) {
	path, err := ExpandHome(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	if err := Write(f, filters, now); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close export file: %w", err)
	}
	return path, nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
