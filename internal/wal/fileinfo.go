package wal

// FileGroupInfo is the first-pass validation result for one WAL file (4.C).
// It feeds the consolidator (4.D) and the transaction-index merge (4.E).
type FileGroupInfo struct {
	FileID uint64
	Gen    uint64
	Path   string
	Size   int64
	EndOff int64 // validated ending offset; torn bytes beyond this are ignored
	Torn   bool
	// Last marks the one file eligible for a torn tail: the highest-rid
	// file of the highest generation, i.e. the file the writer had open
	// at the moment of an unclean shutdown. Any other file ending in an
	// invalid record is corruption, not a torn write.
	Last    bool
	MinMax  MinMaxInfo
	Commits map[uint64]*CommitDescriptor // txid -> descriptor, local to this file
}

// NewFileGroupInfo constructs a FileGroupInfo ready for ValidateFile.
func NewFileGroupInfo(fileID, gen uint64, path string, size int64, last bool) *FileGroupInfo {
	return &FileGroupInfo{
		FileID:  fileID,
		Gen:     gen,
		Path:    path,
		Size:    size,
		Last:    last,
		MinMax:  NewMinMaxInfo(),
		Commits: make(map[uint64]*CommitDescriptor),
	}
}
