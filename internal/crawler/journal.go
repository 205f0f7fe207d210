package crawler

// NopJournal discards everything
type NopJournal struct{}

func (NopJournal) RecordPage(*PageRecord) error { return nil }

func (NopJournal) RecordLinks(string, []string) error { return nil }

func (NopJournal) RecordError(string, string, string) error { return nil }

func (NopJournal) SetMeta(string, string) error { return nil }
