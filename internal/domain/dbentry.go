package domain

type DbEntry struct {
	key       string
	value     string
	tombstone bool
}

func NewDbEntry(key, value string, tombstone bool) DbEntry {
	return DbEntry{
		key:       key,
		value:     value,
		tombstone: tombstone,
	}
}

// NewTombstone marks key as deleted. Tombstones carry no value.
func NewTombstone(key string) DbEntry {
	return DbEntry{
		key:       key,
		tombstone: true,
	}
}

func (entry *DbEntry) Key() string {
	return entry.key
}

func (entry *DbEntry) Value() string {
	return entry.value
}

func (entry *DbEntry) Tombstone() bool {
	return entry.tombstone
}
