package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Split is a validated, canonical split.
type Split struct {
	Mode          SplitMode
	Participants  []UserID
	CustomAmounts map[UserID]decimal.Decimal // nil for equal mode

	// Defaulted reports that no participants were requested and the full
	// membership was used instead.
	Defaulted bool
}

// NormalizeSplit validates raw split inputs against the trip's current membership.
//
// An empty requested list defaults to every current member. Equal splits store no
// per-person amounts; custom splits must name exactly the participants and sum to
// amount with exact decimal equality.
func NormalizeSplit(members UserSet, amount decimal.Decimal, mode string, requested []UserID, custom map[UserID]decimal.Decimal) (Split, error) {
	m := SplitMode(mode)
	if m != SplitModeEqual && m != SplitModeCustom {
		return Split{}, &Error{Kind: KindInvalidSplitMode, Field: "split_mode", Message: "split_mode must be equal or custom"}
	}

	var participants UserSet
	defaulted := len(requested) == 0
	if defaulted {
		participants = NewUserSet(members.Slice()...)
	} else {
		participants = NewUserSet(requested...)
	}

	if participants.Len() == 0 {
		return Split{}, &Error{Kind: KindEmptyParticipants, Field: "split_with_user_ids", Message: "split_with_user_ids cannot be empty"}
	}
	for _, id := range participants.Slice() {
		if !members.Contains(id) {
			return Split{}, &Error{
				Kind:    KindParticipantNotMember,
				Field:   "split_with_user_ids",
				Message: fmt.Sprintf("user %s is not a trip member", id),
			}
		}
	}

	out := Split{Mode: m, Participants: participants.Slice(), Defaulted: defaulted}
	if m == SplitModeEqual {
		return out, nil
	}

	if len(custom) == 0 {
		return Split{}, &Error{Kind: KindSplitMismatch, Field: "custom_split_amounts", Message: "custom_split_amounts is required for custom splits"}
	}

	keys := make([]UserID, 0, len(custom))
	for k := range custom {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	normalized := make(map[UserID]decimal.Decimal, len(custom))
	sum := decimal.Zero
	for _, id := range keys {
		v := custom[id]
		field := "custom_split_amounts." + string(id)
		if !members.Contains(id) {
			return Split{}, &Error{Kind: KindParticipantNotMember, Field: field, Message: "custom split user must be a trip member"}
		}
		if v.IsNegative() {
			return Split{}, &Error{Kind: KindInvalidAmount, Field: field, Message: "custom split amount must be >= 0"}
		}
		normalized[id] = v
		sum = sum.Add(v)
	}

	if len(normalized) != participants.Len() {
		return Split{}, splitMismatch()
	}
	for _, id := range out.Participants {
		if _, ok := normalized[id]; !ok {
			return Split{}, splitMismatch()
		}
	}

	if !sum.Equal(amount) {
		return Split{}, &Error{
			Kind:    KindSplitSumMismatch,
			Field:   "custom_split_amounts",
			Message: fmt.Sprintf("custom split sums to %s, expected %s", sum.String(), amount.String()),
		}
	}

	out.CustomAmounts = normalized
	return out, nil
}

func splitMismatch() *Error {
	return &Error{Kind: KindSplitMismatch, Field: "custom_split_amounts", Message: "custom split users must match split_with_user_ids"}
}
