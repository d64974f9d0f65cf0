// Package bundle builds the clinical payload that gets encrypted as a unit:
// one subject record followed by one reference record per shared document.
// The output is a FHIR-flavored collection bundle.
package bundle

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Subject is the clinical subject (patient) record embedded in the bundle.
type Subject struct {
	ID    string
	Name  string
	Phone string
	Email string
}

// DocumentRef describes one shared document. URL points at that document's
// own encrypted artifact (a freshly signed fetch URL at assembly time);
// ContentType is the media type of the *decrypted* payload. The viewer
// decrypts each referenced blob with the same key that opened the bundle.
type DocumentRef struct {
	ID          string
	Name        string
	Category    string
	Date        time.Time
	ContentType string
	ByteSize    int64
	URL         string
}

// ContentType is the declared media type of the assembled plaintext bundle.
const ContentType = "application/fhir+json"

type document struct {
	ResourceType string  `json:"resourceType"`
	Status       string  `json:"status"`
	Description  string  `json:"description,omitempty"`
	Category     []coded `json:"category,omitempty"`
	Date         string  `json:"date"`
	Content      []struct {
		Attachment attachment `json:"attachment"`
	} `json:"content"`
}

type coded struct {
	Text string `json:"text"`
}

type attachment struct {
	ContentType string `json:"contentType"`
	URL         string `json:"url"`
	Size        int64  `json:"size,omitempty"`
	Title       string `json:"title,omitempty"`
}

type patient struct {
	ResourceType string    `json:"resourceType"`
	ID           string    `json:"id"`
	Name         []struct {
		Text string `json:"text"`
	} `json:"name,omitempty"`
	Telecom []telecom `json:"telecom,omitempty"`
}

type telecom struct {
	System string `json:"system"`
	Value  string `json:"value"`
}

type entry struct {
	FullURL  string `json:"fullUrl"`
	Resource any    `json:"resource"`
}

type collection struct {
	ResourceType string  `json:"resourceType"`
	Type         string  `json:"type"`
	Timestamp    string  `json:"timestamp"`
	Entry        []entry `json:"entry"`
}

// Assemble produces the canonical collection document for one subject and
// its document references. It is pure apart from the fresh urn:uuid entry
// identifiers: identical inputs yield structurally identical output modulo
// those identifiers and the timestamp.
func Assemble(subject Subject, docs []DocumentRef, now time.Time) ([]byte, error) {
	p := patient{ResourceType: "Patient", ID: subject.ID}
	if subject.Name != "" {
		p.Name = []struct {
			Text string `json:"text"`
		}{{Text: subject.Name}}
	}
	if subject.Phone != "" {
		p.Telecom = append(p.Telecom, telecom{System: "phone", Value: subject.Phone})
	}
	if subject.Email != "" {
		p.Telecom = append(p.Telecom, telecom{System: "email", Value: subject.Email})
	}

	entries := []entry{{FullURL: "urn:uuid:" + uuid.NewString(), Resource: p}}

	for _, d := range docs {
		doc := document{
			ResourceType: "DocumentReference",
			Status:       "current",
			Description:  d.Name,
			Date:         d.Date.UTC().Format(time.RFC3339),
		}
		if d.Category != "" {
			doc.Category = []coded{{Text: d.Category}}
		}
		doc.Content = []struct {
			Attachment attachment `json:"attachment"`
		}{{Attachment: attachment{
			ContentType: d.ContentType,
			URL:         d.URL,
			Size:        d.ByteSize,
			Title:       d.Name,
		}}}
		entries = append(entries, entry{FullURL: "urn:uuid:" + uuid.NewString(), Resource: doc})
	}

	c := collection{
		ResourceType: "Bundle",
		Type:         "collection",
		Timestamp:    now.UTC().Format(time.RFC3339),
		Entry:        entries,
	}
	return json.Marshal(c)
}
