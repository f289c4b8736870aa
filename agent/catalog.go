package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/mcp"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/schema"
	"github.com/effective-security/xlog"
	"github.com/tidwall/gjson"
)

// ToolLister is the discovery half of the MCP client.
type ToolLister interface {
	ListTools(ctx context.Context, cursor *string) (*mcp.ToolsResponse, error)
}

// Catalog turns the server's tool list into function declarations for the
// model and description lines for the prompt. The caller serializes access;
// one query is in flight at a time.
type Catalog struct {
	lister  ToolLister
	refresh RefreshPolicy

	decls []*llms.FunctionDeclaration
	lines []string
	ready bool
}

// NewCatalog creates a catalog over the given lister with the given refresh
// policy.
func NewCatalog(lister ToolLister, refresh RefreshPolicy) *Catalog {
	return &Catalog{
		lister:  lister,
		refresh: refresh,
	}
}

// Discover returns the function declarations and description lines for the
// server's tools, in server order. With RefreshPerSession the first result is
// cached for the rest of the session.
func (c *Catalog) Discover(ctx context.Context) ([]*llms.FunctionDeclaration, []string, error) {
	if c.ready && c.refresh == RefreshPerSession {
		return c.decls, c.lines, nil
	}

	res, err := c.lister.ListTools(ctx, nil)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "failed to discover tools")
	}

	decls := make([]*llms.FunctionDeclaration, 0, len(res.Tools))
	var lines []string

	for _, tool := range res.Tools {
		decl := &llms.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", tool.Name, tool.Description))

		doc, err := schemaDocument(tool.InputSchema)
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "tool %q", tool.Name)
		}
		if doc != nil {
			normalized, err := schema.NormalizeMap(doc)
			if err != nil {
				return nil, nil, errors.WithMessagef(err, "tool %q", tool.Name)
			}
			decl.Parameters = normalized
			lines = append(lines, parameterLines(doc)...)
		}
		decls = append(decls, decl)
	}

	logger.KV(xlog.DEBUG, "status", "discovered", "tools", len(decls))

	c.decls = decls
	c.lines = lines
	c.ready = true
	return decls, lines, nil
}

// schemaDocument extracts the schema JSON document from the raw inputSchema
// field, which servers send either as an object or as a JSON string holding
// an encoded object.
func schemaDocument(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var blob string
	if err := json.Unmarshal(raw, &blob); err == nil {
		return []byte(blob), nil
	}
	return raw, nil
}

// parameterLines lists the schema's top-level properties in document order.
// Properties without a description get the empty string.
func parameterLines(doc []byte) []string {
	props := gjson.GetBytes(doc, "properties")
	if !props.IsObject() {
		return nil
	}
	var lines []string
	props.ForEach(func(key, value gjson.Result) bool {
		lines = append(lines, fmt.Sprintf("  - Parameter '%s': %s", key.String(), value.Get("description").String()))
		return true
	})
	return lines
}
