package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// maxSignatureSkew bounds how stale a signed request may be before it is
// rejected as a possible replay.
const maxSignatureSkew = 5 * time.Minute

// VerifySignature checks the platform's v0 HMAC request signature.
func VerifySignature(signingSecret, timestamp, signature string, body []byte) error {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid signature timestamp")
	}
	if d := time.Since(time.Unix(ts, 0)); d > maxSignatureSkew || d < -maxSignatureSkew {
		return fmt.Errorf("signature timestamp outside allowed window")
	}
	mac := hmac.New(sha256.New, []byte(signingSecret))
	fmt.Fprintf(mac, "v0:%s:", timestamp)
	mac.Write(body)
	want := "v0=" + hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// EventCallback is the outer envelope of an event webhook delivery.
type EventCallback struct {
	Type      string     `json:"type"`
	Challenge string     `json:"challenge,omitempty"`
	EventID   string     `json:"event_id"`
	EventTime int64      `json:"event_time"`
	Event     InnerEvent `json:"event"`
}

// InnerEvent is the payload of a file_shared event.
type InnerEvent struct {
	Type      string `json:"type"`
	FileID    string `json:"file_id"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	EventTS   string `json:"event_ts"`
}

// ParseEventCallback decodes an event webhook body.
func ParseEventCallback(body []byte) (*EventCallback, error) {
	var cb EventCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, fmt.Errorf("invalid event callback: %w", err)
	}
	return &cb, nil
}

// EventKey returns the dedup identity for this delivery: the platform event id
// when present, otherwise fileID+eventTS.
func (cb *EventCallback) EventKey() string {
	if cb.EventID != "" {
		return cb.EventID
	}
	return cb.Event.FileID + ":" + cb.Event.EventTS
}

// Interaction is a parsed block-actions payload (button click or menu
// selection).
type Interaction struct {
	Type    string `json:"type"`
	User    struct {
		ID string `json:"id"`
	} `json:"user"`
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
	Message struct {
		TS string `json:"ts"`
	} `json:"message"`
	Actions []InteractionAction `json:"actions"`
}

// InteractionAction is one triggered action within an interaction.
type InteractionAction struct {
	ActionID       string `json:"action_id"`
	Value          string `json:"value,omitempty"`
	SelectedOption *struct {
		Value string `json:"value"`
	} `json:"selected_option,omitempty"`
	ActionTS string `json:"action_ts"`
}

// PayloadValue returns the opaque value regardless of element type.
func (a InteractionAction) PayloadValue() string {
	if a.SelectedOption != nil {
		return a.SelectedOption.Value
	}
	return a.Value
}

// ParseInteraction decodes the `payload` form field of an interactivity POST.
func ParseInteraction(payload []byte) (*Interaction, error) {
	var in Interaction
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, fmt.Errorf("invalid interaction payload: %w", err)
	}
	if len(in.Actions) == 0 {
		return nil, fmt.Errorf("interaction payload has no actions")
	}
	return &in, nil
}

// EventKey returns the dedup identity of an interaction delivery: the action's
// own timestamp scoped by user, so a redelivered click is caught while a
// genuine second click is not.
func (in *Interaction) EventKey() string {
	a := in.Actions[0]
	return "interaction:" + in.User.ID + ":" + a.ActionID + ":" + a.ActionTS
}
