package agent

import (
	"fmt"
	"strings"
)

// locationHints instructs the model to resolve named locations to coordinates
// on its own instead of asking the user.
const locationHints = `When using weather tools, if a location is mentioned, you should automatically convert the location name to its approximate latitude and longitude.
For example:
- Miami, FL is approximately at latitude 25.7617, longitude -80.1918
- New York City is approximately at latitude 40.7128, longitude -74.0060
- Los Angeles is approximately at latitude 34.0522, longitude -118.2437`

// ComposePrompt builds the augmented prompt sent to the model: the user's
// query, the fixed location-conversion hints, and the tool description lines.
func ComposePrompt(query string, descriptionLines []string) string {
	return fmt.Sprintf(`
I need you to help me with a weather query: "%s"

%s

I have the following tools available:
%s

Please use these tools to answer my query. If you need latitude and longitude for a location mentioned in my query, convert it automatically - don't ask me for coordinates.
`, query, locationHints, strings.Join(descriptionLines, "\n"))
}
