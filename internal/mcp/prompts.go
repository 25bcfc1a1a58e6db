package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// canvasPrompt is a guided workflow. Body is rendered with the single
// argument substituted for %[1]s.
type canvasPrompt struct {
	name, description string
	arg, argHelp      string
	summary           string
	body              string
}

var canvasPrompts = []canvasPrompt{
	{
		name:        "system_diagram",
		description: "Create a system architecture diagram from shapes and text on the active page",
		arg:         "systemName",
		argHelp:     "Name of the system to diagram",
		summary:     "Create a system diagram for: %s",
		body: `Create a system architecture diagram for "%[1]s" on the active page. Follow these steps:

1. Identify the main components of the system
2. Use add_element with kind "rectangle" for each component, and a "text" element inside it naming the component
3. Use pointer_gesture with tool "draw" to sketch connections between related components
4. Use arrange_elements to keep the layout on a clean grid
5. Add a "text" element near the top with a one-line legend

Use consistent colors: #3b82f6 for primary components, #10b981 for databases, #f59e0b for external services.`,
	},
	{
		name:        "outline_notes",
		description: "Turn a topic into collapsible note sections laid out on a page",
		arg:         "topic",
		argHelp:     "Topic of the notes",
		summary:     "Outline notes about: %s",
		body: `Write structured notes about "%[1]s". Follow these steps:

1. Use create_page to start a page named "%[1]s"
2. Add a "text" element with an <h1> title
3. For each subtopic, add an "expandable" element: content is the section title, body is HTML paragraphs or lists
4. Use arrange_elements to place the sections in rows below the title
5. Use list_elements to check the result`,
	},
	{
		name:        "tidy_page",
		description: "Clean up a cluttered page without losing content",
		arg:         "pageId",
		argHelp:     "Page to tidy",
		summary:     "Tidy page %s",
		body: `Tidy page "%[1]s". Follow these steps:

1. Use list_elements with pageId "%[1]s" to see every element and its bounds
2. Group related elements and use arrange_elements to lay each group out on a grid
3. Use set_style to give elements of the same role the same stroke color
4. Only propose delete_elements for elements that are empty or exact duplicates; the user must approve it`,
	},
}

func (s *Server) registerPrompts() {
	for _, p := range canvasPrompts {
		s.mcp.AddPrompt(mcp.NewPrompt(p.name,
			mcp.WithPromptDescription(p.description),
			mcp.WithArgument(p.arg,
				mcp.ArgumentDescription(p.argHelp),
				mcp.RequiredArgument(),
			),
		), p.handle)
	}
}

func (p canvasPrompt) handle(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	value := strings.TrimSpace(req.Params.Arguments[p.arg])
	if value == "" {
		return nil, fmt.Errorf("%s is required", p.arg)
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf(p.summary, value),
		Messages: []mcp.PromptMessage{{
			Role:    mcp.RoleUser,
			Content: mcp.NewTextContent(fmt.Sprintf(p.body, value)),
		}},
	}, nil
}
