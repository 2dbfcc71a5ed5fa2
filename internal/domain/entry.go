package domain

// Row is one raw input table record, keyed by column header.
type Row map[string]string

// GroupKey returns the compound grouping key for the row. Rows sharing a key
// become one EntryGroup, i.e. one target object with multiple lines. The
// primary key column is Id; GroupId is accepted as an alias for input tables
// produced by the older connector generation.
func (r Row) GroupKey() string {
	id := r["Id"]
	if id == "" {
		id = r["GroupId"]
	}
	return id + "\x00" + r["EntityName"]
}

// ID returns the row's reporting identifier.
func (r Row) ID() string {
	if id := r["Id"]; id != "" {
		return id
	}
	return r["GroupId"]
}

// EntryGroup is an ordered sequence of rows sharing a grouping key,
// representing one object to create. Header-level fields (TxnDate,
// DocNumber, PrivateNote) are taken from the first row; every row is a line
// item.
type EntryGroup struct {
	ID   string
	Rows []Row
}

// GroupRows partitions rows into EntryGroups, preserving the insertion order
// of first appearance so error reporting is reproducible across runs with
// the same input.
func GroupRows(rows []Row) []EntryGroup {
	var groups []EntryGroup
	index := make(map[string]int)

	for _, row := range rows {
		key := row.GroupKey()
		if i, ok := index[key]; ok {
			groups[i].Rows = append(groups[i].Rows, row)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, EntryGroup{ID: row.ID(), Rows: []Row{row}})
	}

	return groups
}
