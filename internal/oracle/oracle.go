package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"rialto/internal/activity"
	"rialto/internal/model"
)

// Oracle proposes the next intent for a citizen. The engine treats it as an
// opaque upstream caller: whatever comes back still goes through the
// creator's full validation.
type Oracle interface {
	ProposeIntent(ctx context.Context, citizen *model.Citizen) (*activity.Intent, error)
}

const systemPrompt = `You advise citizens of a merchant republic on their next economic move.
Reply with a single JSON object and nothing else, shaped like:
{"type":"buy_resource","params":{"contract_id":"...","quantity":2}}
Valid types: buy_land, buy_resource, list_resource, adjust_rent, bid_building.
If no move makes sense, reply {"type":"none"}.`

// LLMOracle asks the language model which intent a citizen should pursue.
type LLMOracle struct {
	Client *Client
}

// ErrNoProposal is returned when the oracle declines to propose anything.
var ErrNoProposal = fmt.Errorf("oracle proposed no intent")

// ProposeIntent implements Oracle.
func (o *LLMOracle) ProposeIntent(ctx context.Context, citizen *model.Citizen) (*activity.Intent, error) {
	if !o.Client.Enabled() {
		return nil, ErrNoProposal
	}

	prompt := fmt.Sprintf("Citizen %s holds %d ducats.", citizen.Username, citizen.Ducats)
	text, err := o.Client.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("oracle completion: %w", err)
	}

	// The model sometimes wraps JSON in prose; take the outermost braces.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("oracle returned no JSON: %q", text)
	}

	var proposal struct {
		Type   string          `json:"type"`
		Params activity.Params `json:"params"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &proposal); err != nil {
		return nil, fmt.Errorf("oracle proposal unparseable: %w", err)
	}
	if proposal.Type == "" || proposal.Type == "none" {
		return nil, ErrNoProposal
	}

	return &activity.Intent{
		Type:    activity.IntentType(proposal.Type),
		Citizen: citizen.Username,
		Params:  proposal.Params,
	}, nil
}
