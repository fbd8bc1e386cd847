// Package proof holds the hashing and verification primitives of the
// tamper-evident verification log. Nothing here touches storage.
package proof

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/strategy-verifier/internal/canonical"
)

// #region hash
// ComputeEventHash hashes the pipe-joined preimage
// sequence|strategyId|type|recordId|prevEventHash|canonicalJSON(payload).
// CreatedAt is not part of the preimage.
func ComputeEventHash(sequence int64, strategyID string, typ EventType, recordID, prevHash string, payload map[string]any) (string, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	body, err := canonical.JSON(payload)
	if err != nil {
		return "", fmt.Errorf("canonical payload: %w", err)
	}
	preimage := strings.Join([]string{
		strconv.FormatInt(sequence, 10),
		strategyID,
		string(typ),
		recordID,
		prevHash,
		string(body),
	}, "|")
	return canonical.SHA256Hex(preimage), nil
}

// #endregion hash

// #region next
// Next places d after head in its chain. A nil head starts the chain at
// sequence 1 linked to GenesisHash. The payload is normalized so the event
// hashes the same before and after a storage round trip.
func Next(head *Event, d Draft) (Event, error) {
	seq := int64(1)
	prev := GenesisHash
	if head != nil {
		if head.RecordID != d.RecordID {
			return Event{}, fmt.Errorf("chain head belongs to %q, not %q", head.RecordID, d.RecordID)
		}
		seq = head.Sequence + 1
		prev = head.EventHash
	}

	payload, err := normalizePayload(d.Payload)
	if err != nil {
		return Event{}, err
	}

	hash, err := ComputeEventHash(seq, d.StrategyID, d.Type, d.RecordID, prev, payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Sequence:      seq,
		StrategyID:    d.StrategyID,
		Type:          d.Type,
		RecordID:      d.RecordID,
		EventHash:     hash,
		PrevEventHash: prev,
		Payload:       payload,
		CreatedAt:     d.CreatedAt,
	}, nil
}

// Build chains drafts after head in order.
func Build(head *Event, drafts []Draft) ([]Event, error) {
	out := make([]Event, 0, len(drafts))
	for _, d := range drafts {
		ev, err := Next(head, d)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
		head = &out[len(out)-1]
	}
	return out, nil
}

func normalizePayload(p map[string]any) (map[string]any, error) {
	if p == nil {
		return map[string]any{}, nil
	}
	v, err := canonical.Normalize(p)
	if err != nil {
		return nil, fmt.Errorf("normalize payload: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("normalize payload: got %T", v)
	}
	return m, nil
}

// #endregion next

// #region verify
// VerifyProofChain walks events in ascending sequence order and stops at the
// first event whose sequence, link, or hash does not hold. An empty chain is
// valid. Hashes are recomputed under recordID, so events from another scope
// never verify.
func VerifyProofChain(events []Event, recordID string) VerifyResult {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })

	expectedSeq := int64(1)
	prev := GenesisHash
	for _, ev := range sorted {
		if ev.Sequence != expectedSeq {
			return VerifyResult{
				BrokenAt:   expectedSeq,
				Reason:     fmt.Sprintf("sequence gap: expected %d, found %d", expectedSeq, ev.Sequence),
				EventCount: len(events),
			}
		}
		if ev.PrevEventHash != prev {
			return VerifyResult{
				BrokenAt:   ev.Sequence,
				Reason:     "prevEventHash does not match previous eventHash",
				EventCount: len(events),
			}
		}
		hash, err := ComputeEventHash(ev.Sequence, ev.StrategyID, ev.Type, recordID, ev.PrevEventHash, ev.Payload)
		if err != nil {
			return VerifyResult{
				BrokenAt:   ev.Sequence,
				Reason:     fmt.Sprintf("payload not hashable: %v", err),
				EventCount: len(events),
			}
		}
		if hash != ev.EventHash {
			return VerifyResult{
				BrokenAt:   ev.Sequence,
				Reason:     "eventHash does not match recomputed hash",
				EventCount: len(events),
			}
		}
		prev = ev.EventHash
		expectedSeq++
	}
	return VerifyResult{Valid: true, EventCount: len(events)}
}

// #endregion verify
