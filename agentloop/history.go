package agentloop

// HistoryStore persists serialized conversations by name. Load of a name
// that was never saved returns an error matching fs.ErrNotExist.
type HistoryStore interface {
	Save(name string, data []byte) error
	Load(name string) ([]byte, error)
	Delete(name string) error
}
