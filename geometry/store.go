package geometry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/ghodss/yaml"
	"github.com/james-bowman/sparse"
	"github.com/notargets/meshgeom/types"
)

var (
	ErrNoTransaction     = errors.New("no open transaction")
	ErrTransactionActive = errors.New("a transaction is already open")
)

// Entity is one entity set of the geometry model
type Entity struct {
	Handle     Handle                 `json:"handle"`
	Category   types.Category         `json:"category,omitempty"`
	IntTags    map[string]int         `json:"int_tags,omitempty"`
	DoubleTags map[string]float64     `json:"double_tags,omitempty"`
	StringTags map[string]string      `json:"string_tags,omitempty"`
	Children   []Handle               `json:"children,omitempty"`
	Members    []Handle               `json:"members,omitempty"`
	Senses     map[Handle]types.Sense `json:"senses,omitempty"` // Keyed by volume handle
	Facets     []Facet                `json:"facets,omitempty"`
}

// ID returns the id tag, 0 when not set
func (e *Entity) ID() int { return e.IntTags[types.TagID] }

type categoryID struct {
	category types.Category
	id       int
}

// Snapshot is a complete geometry model as written by one transaction
type Snapshot struct {
	RootHandle Handle    `json:"root"`
	Entities   []*Entity `json:"entities"` // Entities[h-1] has handle h

	ids map[categoryID]Handle
}

func newSnapshot() *Snapshot {
	s := &Snapshot{ids: make(map[categoryID]Handle)}
	s.RootHandle = s.add("").Handle
	return s
}

func (s *Snapshot) add(category types.Category) *Entity {
	e := &Entity{Handle: Handle(len(s.Entities) + 1), Category: category}
	s.Entities = append(s.Entities, e)
	return e
}

func (s *Snapshot) entity(h Handle) (*Entity, error) {
	if h == 0 || int(h) > len(s.Entities) {
		return nil, fmt.Errorf("unknown handle %d", h)
	}
	return s.Entities[h-1], nil
}

// Entity returns the entity with handle h, or nil
func (s *Snapshot) Entity(h Handle) *Entity {
	e, _ := s.entity(h)
	return e
}

// Root returns the root set
func (s *Snapshot) Root() *Entity { return s.Entity(s.RootHandle) }

// Find returns the entity of a category carrying the id tag, or nil
func (s *Snapshot) Find(category types.Category, id int) *Entity {
	if h, ok := s.ids[categoryID{category, id}]; ok {
		return s.Entity(h)
	}
	return nil
}

// ByCategory returns the entities of a category in ascending id order
func (s *Snapshot) ByCategory(category types.Category) (entities []*Entity) {
	for _, e := range s.Entities {
		if e.Category == category {
			entities = append(entities, e)
		}
	}
	sort.SliceStable(entities, func(i, j int) bool { return entities[i].ID() < entities[j].ID() })
	return
}

// VolumeAdjacency returns a symmetric volume by volume matrix, entry (i-1, j-1) counting the surfaces shared by
// the volumes with ids i and j
func (s *Snapshot) VolumeAdjacency() *sparse.CSR {
	volumes := s.ByCategory(types.CategoryVolume)
	n := 0
	for _, v := range volumes {
		if v.ID() > n {
			n = v.ID()
		}
	}
	dok := sparse.NewDOK(n, n)
	for _, surf := range s.ByCategory(types.CategorySurface) {
		var ids []int
		for h := range surf.Senses {
			if vol := s.Entity(h); vol != nil && vol.ID() > 0 {
				ids = append(ids, vol.ID())
			}
		}
		if len(ids) != 2 {
			continue
		}
		i, j := ids[0]-1, ids[1]-1
		dok.Set(i, j, dok.At(i, j)+1)
		dok.Set(j, i, dok.At(j, i)+1)
	}
	return dok.ToCSR()
}

// JSON encodes the snapshot
func (s *Snapshot) JSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// YAML encodes the snapshot through its JSON form
func (s *Snapshot) YAML() ([]byte, error) {
	return yaml.Marshal(s)
}

// Store is an in memory Sink. A Commit replaces the previously committed snapshot as a whole.
type Store struct {
	mu        sync.Mutex
	committed *Snapshot
	pending   *Snapshot
}

func NewStore() *Store {
	return &Store{}
}

// Committed returns the last committed snapshot, nil before the first commit
func (st *Store) Committed() *Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.committed
}

// Export writes the committed snapshot as yaml or json
func (st *Store) Export(w io.Writer, format string) (err error) {
	snap := st.Committed()
	if snap == nil {
		return errors.New("nothing committed")
	}
	var data []byte
	switch format {
	case "yaml", "yml":
		data, err = snap.YAML()
	case "json":
		data, err = snap.JSON()
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return
}

func (st *Store) Begin() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.pending != nil {
		return ErrTransactionActive
	}
	st.pending = newSnapshot()
	return nil
}

func (st *Store) Commit() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.pending == nil {
		return ErrNoTransaction
	}
	st.committed, st.pending = st.pending, nil
	return nil
}

func (st *Store) Rollback() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.pending == nil {
		return ErrNoTransaction
	}
	st.pending = nil
	return nil
}

// Root returns the root handle of the open transaction, or of the committed snapshot outside a transaction
func (st *Store) Root() Handle {
	st.mu.Lock()
	defer st.mu.Unlock()
	switch {
	case st.pending != nil:
		return st.pending.RootHandle
	case st.committed != nil:
		return st.committed.RootHandle
	}
	return 0
}

// write runs fn on the pending snapshot under the lock
func (st *Store) write(fn func(s *Snapshot) error) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.pending == nil {
		return ErrNoTransaction
	}
	return fn(st.pending)
}

func (st *Store) CreateSet(category types.Category) (h Handle, err error) {
	err = st.write(func(s *Snapshot) error {
		switch category {
		case types.CategoryGroup, types.CategoryVolume, types.CategorySurface:
		default:
			return fmt.Errorf("unknown category %q", category)
		}
		h = s.add(category).Handle
		return nil
	})
	return
}

func (st *Store) SetIntTag(h Handle, name string, value int) error {
	return st.write(func(s *Snapshot) error {
		e, err := s.entity(h)
		if err != nil {
			return err
		}
		if name == types.TagID && e.Category != "" {
			key := categoryID{e.Category, value}
			if other, dup := s.ids[key]; dup && other != h {
				return fmt.Errorf("duplicate %s id %d", e.Category, value)
			}
			if old, ok := e.IntTags[types.TagID]; ok {
				delete(s.ids, categoryID{e.Category, old})
			}
			s.ids[key] = h
		}
		if e.IntTags == nil {
			e.IntTags = make(map[string]int)
		}
		e.IntTags[name] = value
		return nil
	})
}

func (st *Store) SetDoubleTag(h Handle, name string, value float64) error {
	return st.write(func(s *Snapshot) error {
		e, err := s.entity(h)
		if err != nil {
			return err
		}
		if e.DoubleTags == nil {
			e.DoubleTags = make(map[string]float64)
		}
		e.DoubleTags[name] = value
		return nil
	})
}

func (st *Store) SetStringTag(h Handle, name string, value string) error {
	return st.write(func(s *Snapshot) error {
		e, err := s.entity(h)
		if err != nil {
			return err
		}
		if name == types.TagCategory && types.Category(value) != e.Category {
			return fmt.Errorf("handle %d: category tag %q does not match set category %q", h, value, e.Category)
		}
		if e.StringTags == nil {
			e.StringTags = make(map[string]string)
		}
		e.StringTags[name] = value
		return nil
	})
}

func (st *Store) AddChild(parent, child Handle) error {
	return st.write(func(s *Snapshot) error {
		p, err := s.entity(parent)
		if err != nil {
			return err
		}
		if _, err = s.entity(child); err != nil {
			return err
		}
		if parent == child {
			return fmt.Errorf("handle %d cannot be its own child", parent)
		}
		p.Children = append(p.Children, child)
		return nil
	})
}

func (st *Store) AddToGroup(group, member Handle) error {
	return st.write(func(s *Snapshot) error {
		g, err := s.entity(group)
		if err != nil {
			return err
		}
		if g.Category != types.CategoryGroup {
			return fmt.Errorf("handle %d is a %q set, not a group", group, g.Category)
		}
		if _, err = s.entity(member); err != nil {
			return err
		}
		g.Members = append(g.Members, member)
		return nil
	})
}

func (st *Store) SetSense(surface, volume Handle, sense types.Sense) error {
	return st.write(func(s *Snapshot) error {
		surf, err := s.entity(surface)
		if err != nil {
			return err
		}
		vol, err := s.entity(volume)
		if err != nil {
			return err
		}
		if surf.Category != types.CategorySurface || vol.Category != types.CategoryVolume {
			return fmt.Errorf("sense needs a surface and a volume, have %q and %q", surf.Category, vol.Category)
		}
		if sense != types.Forward && sense != types.Reverse {
			return fmt.Errorf("invalid sense %d", sense)
		}
		for other, existing := range surf.Senses {
			if existing == sense && other != volume {
				return fmt.Errorf("surface %d already has a %s volume", surface, sense)
			}
		}
		if surf.Senses == nil {
			surf.Senses = make(map[Handle]types.Sense)
		}
		surf.Senses[volume] = sense
		return nil
	})
}

func (st *Store) AddFacets(surface Handle, facets []Facet) error {
	return st.write(func(s *Snapshot) error {
		surf, err := s.entity(surface)
		if err != nil {
			return err
		}
		if surf.Category != types.CategorySurface {
			return fmt.Errorf("facets need a surface, handle %d is a %q set", surface, surf.Category)
		}
		surf.Facets = append(surf.Facets, facets...)
		return nil
	})
}
