package cli

import "go.uber.org/zap"

const defaultHistoryMaxEntries = 50

// History keeps the most recent REPL command lines.
type History struct {
	entries    []string
	maxEntries int
	logger     *zap.Logger
}

func NewHistory(maxEntries int, logger *zap.Logger) *History {
	if maxEntries <= 0 {
		maxEntries = defaultHistoryMaxEntries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &History{maxEntries: maxEntries, logger: logger}
}

func (h *History) Append(line string) {
	h.entries = append(h.entries, line)
	if len(h.entries) > h.maxEntries {
		h.entries = h.entries[len(h.entries)-h.maxEntries:]
		h.logger.Debug("history trimmed", zap.Int("entries", len(h.entries)))
	}
}

func (h *History) Entries() []string {
	if len(h.entries) == 0 {
		return nil
	}
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *History) Clear() {
	h.entries = nil
}
