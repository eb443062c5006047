package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fdr/walk/internal/types"
	"github.com/mitchellh/hashstructure/v2"
)

func (s *Store) memoriesPath() string  { return filepath.Join(s.dir, "memories.json") }
func (s *Store) proposalsPath() string { return filepath.Join(s.dir, "proposals.json") }

// Memories returns every memory ever recorded (alive and dead). Callers
// filter by AliveAt for a given epoch.
func (s *Store) Memories() ([]types.Memory, error) {
	var memories []types.Memory
	if err := readJSONOrEmpty(s.memoriesPath(), &memories); err != nil {
		return nil, err
	}
	return memories, nil
}

// Proposals returns every pending proposal.
func (s *Store) Proposals() ([]types.Proposal, error) {
	var proposals []types.Proposal
	if err := readJSONOrEmpty(s.proposalsPath(), &proposals); err != nil {
		return nil, err
	}
	return proposals, nil
}

// ProposeMemory appends a proposal, through the walk lock. A proposal with
// the same content hash (key+text) already pending in the same epoch is
// not re-appended (dedup), matching the planner's expectation of a clean,
// non-repeating proposal list.
func (s *Store) ProposeMemory(key, text, proposedBy string, epoch int) error {
	return s.withWalkLock(func() error {
		var proposals []types.Proposal
		if err := readJSONOrEmpty(s.proposalsPath(), &proposals); err != nil {
			return err
		}
		newHash, err := hashstructure.Hash(struct{ Key, Text string }{key, text}, hashstructure.FormatV2, nil)
		if err != nil {
			return fmt.Errorf("hashing proposal: %w", err)
		}
		for _, p := range proposals {
			if p.Epoch != epoch {
				continue
			}
			h, err := hashstructure.Hash(struct{ Key, Text string }{p.Key, p.Text}, hashstructure.FormatV2, nil)
			if err == nil && h == newHash {
				return nil // already proposed this epoch
			}
		}
		proposals = append(proposals, types.Proposal{Key: key, Text: text, ProposedBy: proposedBy, Epoch: epoch})
		return writeJSON(s.proposalsPath(), proposals)
	})
}

// AcceptProposal promotes a pending proposal into an alive memory starting
// at the given epoch, and removes it from proposals.json.
func (s *Store) AcceptProposal(key string, epoch int) error {
	return s.withWalkLock(func() error {
		var proposals []types.Proposal
		if err := readJSONOrEmpty(s.proposalsPath(), &proposals); err != nil {
			return err
		}
		var accepted *types.Proposal
		remaining := proposals[:0]
		for i := range proposals {
			if proposals[i].Key == key && accepted == nil {
				p := proposals[i]
				accepted = &p
				continue
			}
			remaining = append(remaining, proposals[i])
		}
		if accepted == nil {
			return fmt.Errorf("%w: proposal %q", ErrNotFound, key)
		}
		if err := writeJSON(s.proposalsPath(), remaining); err != nil {
			return err
		}
		var memories []types.Memory
		if err := readJSONOrEmpty(s.memoriesPath(), &memories); err != nil {
			return err
		}
		memories = append(memories, types.Memory{
			Key: accepted.Key, Text: accepted.Text, AliveFrom: epoch, CreatedBy: accepted.ProposedBy,
		})
		return writeJSON(s.memoriesPath(), memories)
	})
}

// DiscardProposal removes a pending proposal without creating a memory.
func (s *Store) DiscardProposal(key string) error {
	return s.withWalkLock(func() error {
		var proposals []types.Proposal
		if err := readJSONOrEmpty(s.proposalsPath(), &proposals); err != nil {
			return err
		}
		remaining := proposals[:0]
		found := false
		for _, p := range proposals {
			if p.Key == key && !found {
				found = true
				continue
			}
			remaining = append(remaining, p)
		}
		if !found {
			return fmt.Errorf("%w: proposal %q", ErrNotFound, key)
		}
		return writeJSON(s.proposalsPath(), remaining)
	})
}

// ForgetMemory sets a memory's alive_until, ending its lifetime.
func (s *Store) ForgetMemory(key string, untilEpoch int, killedBy string) error {
	return s.withWalkLock(func() error {
		var memories []types.Memory
		if err := readJSONOrEmpty(s.memoriesPath(), &memories); err != nil {
			return err
		}
		found := false
		for i := range memories {
			if memories[i].Key == key && memories[i].AliveUntil == nil {
				until := untilEpoch
				memories[i].AliveUntil = &until
				memories[i].KilledBy = killedBy
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: memory %q", ErrNotFound, key)
		}
		return writeJSON(s.memoriesPath(), memories)
	})
}

func readJSONOrEmpty(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &MalformedRecordError{Path: path, Err: err}
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}
