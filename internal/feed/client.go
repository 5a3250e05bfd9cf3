// Package feed fetches and normalizes card product records from the
// upstream catalog webservice.
package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Record is one flat attribute map decoded from a product node.
// Attribute values and leaf-element text become strings; elements with
// children recurse into nested Records.
type Record map[string]any

// Fetcher is the boundary the reconciliation engine consumes: a source
// of raw feed records.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Record, error)
}

// Client fetches the card catalog feed over HTTP and decodes the XML
// body into flat records.
type Client struct {
	httpClient *http.Client
	baseURL    string
	query      url.Values
}

// NewClient creates a feed client for the given endpoint. The query
// values are sent on every fetch.
func NewClient(baseURL string, query url.Values) *Client {
	return &Client{
		baseURL: baseURL,
		query:   query,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fetch performs one GET against the feed endpoint and returns the
// decoded product records in document order.
func (c *Client) Fetch(ctx context.Context) ([]Record, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed URL: %w", err)
	}
	q := u.Query()
	for key, values := range c.query {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UnavailableError{Err: err, URL: u.String()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &UnavailableError{URL: u.String(), StatusCode: resp.StatusCode}
	}

	var root xmlNode
	if err := xml.NewDecoder(resp.Body).Decode(&root); err != nil {
		return nil, &FormatError{Err: err}
	}

	records := make([]Record, 0, len(root.Children))
	for i := range root.Children {
		records = append(records, root.Children[i].toRecord())
	}
	return records, nil
}

// xmlNode is a generic XML element: the feed schema is not fixed, so
// elements are decoded by name-agnostic recursion.
type xmlNode struct {
	XMLName  xml.Name
	Text     string    `xml:",chardata"`
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []xmlNode  `xml:",any"`
}

// toRecord flattens an element into a Record: attributes first, then
// children, leaf children by trimmed text, nested children recursively.
func (n *xmlNode) toRecord() Record {
	rec := make(Record, len(n.Attrs)+len(n.Children))
	for _, attr := range n.Attrs {
		rec[attr.Name.Local] = attr.Value
	}
	for i := range n.Children {
		child := &n.Children[i]
		if len(child.Children) > 0 {
			rec[child.XMLName.Local] = child.toRecord()
		} else {
			rec[child.XMLName.Local] = strings.TrimSpace(child.Text)
		}
	}
	return rec
}
