package explorer

// ItemKind distinguishes folder rows from file rows in a listing.
type ItemKind string

const (
	ItemKindFolder ItemKind = "folder"
	ItemKindFile   ItemKind = "file"
)

// ListingItem is one row of a listing. Exactly one of Folder and File is set.
type ListingItem struct {
	Kind   ItemKind   `json:"kind"`
	Folder *Folder    `json:"folder,omitempty"`
	File   *FileEntry `json:"file,omitempty"`

	// ChildCount is the number of subfolders and filter-matching files below a folder.
	ChildCount int `json:"child_count,omitempty"`

	// HighlightedName is set on search results only.
	HighlightedName string `json:"highlighted_name,omitempty"`

	// Actions lists the operations offered to the current actor.
	Actions []Action `json:"actions,omitempty"`
}

// ID returns the id of the folder or file the row represents.
func (i ListingItem) ID() string {
	if i.Folder != nil {
		return i.Folder.ID
	}
	if i.File != nil {
		return i.File.ID
	}
	return ""
}

// Name returns the display name of the row.
func (i ListingItem) Name() string {
	if i.Folder != nil {
		return i.Folder.Name
	}
	if i.File != nil {
		return i.File.Name
	}
	return ""
}

// LoadMore marks a truncated listing and carries the cursor for the next page.
type LoadMore struct {
	NextOffset int `json:"next_offset"`
	Limit      int `json:"limit"`
}

// Listing is the merged, ordered result of folders and files for one view.
// Folders always precede files.
type Listing struct {
	FolderID   *string       `json:"folder_id"`
	Order      OrderSpec     `json:"order"`
	Filter     FilterSpec    `json:"filter"`
	Offset     int           `json:"offset"`
	Items      []ListingItem `json:"items"`
	TotalFiles int           `json:"total_files"`
	LoadMore   *LoadMore     `json:"load_more,omitempty"`
	Query      string        `json:"query,omitempty"`
}

// Files returns the file entries of the listing in order.
func (l *Listing) Files() []FileEntry {
	out := make([]FileEntry, 0, len(l.Items))
	for _, it := range l.Items {
		if it.File != nil {
			out = append(out, *it.File)
		}
	}
	return out
}

// Folders returns the folders of the listing in order.
func (l *Listing) Folders() []Folder {
	out := make([]Folder, 0, len(l.Items))
	for _, it := range l.Items {
		if it.Folder != nil {
			out = append(out, *it.Folder)
		}
	}
	return out
}

// Clone returns a deep copy so cached snapshots cannot be mutated by callers.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	cp := *l
	if l.FolderID != nil {
		id := *l.FolderID
		cp.FolderID = &id
	}
	if l.Filter.Bundles != nil {
		cp.Filter.Bundles = append([]string(nil), l.Filter.Bundles...)
	}
	if l.LoadMore != nil {
		lm := *l.LoadMore
		cp.LoadMore = &lm
	}
	cp.Items = make([]ListingItem, len(l.Items))
	for i, it := range l.Items {
		c := it
		if it.Folder != nil {
			f := *it.Folder
			if f.ParentID != nil {
				p := *f.ParentID
				f.ParentID = &p
			}
			c.Folder = &f
		}
		if it.File != nil {
			f := *it.File
			if f.FolderID != nil {
				p := *f.FolderID
				f.FolderID = &p
			}
			c.File = &f
		}
		if it.Actions != nil {
			c.Actions = append([]Action(nil), it.Actions...)
		}
		cp.Items[i] = c
	}
	return &cp
}
