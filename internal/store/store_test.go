package store

// The narrow consumer interfaces are all satisfied by the SQLite store.
var (
	_ ProgressStore = (*SQLiteStore)(nil)
	_ PlanReader    = (*SQLiteStore)(nil)
	_ ActivityStore = (*SQLiteStore)(nil)
)
