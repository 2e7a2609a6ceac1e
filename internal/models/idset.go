package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// IDSet is a set of record identifiers. The zero value is an empty set
// ready to use through a pointer.
type IDSet map[uint]struct{}

// NewIDSet builds a set holding ids.
func NewIDSet(ids ...uint) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id and reports whether it was absent.
func (s *IDSet) Add(id uint) bool {
	if *s == nil {
		*s = make(IDSet)
	}
	if _, ok := (*s)[id]; ok {
		return false
	}
	(*s)[id] = struct{}{}
	return true
}

// Remove deletes id and reports whether it was present.
func (s *IDSet) Remove(id uint) bool {
	if _, ok := (*s)[id]; !ok {
		return false
	}
	delete(*s, id)
	return true
}

func (s IDSet) Contains(id uint) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Len() int {
	return len(s)
}

// IDs returns the members in ascending order.
func (s IDSet) IDs() []uint {
	out := make([]uint, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns an independent copy.
func (s IDSet) Clone() IDSet {
	return NewIDSet(s.IDs()...)
}

func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []uint
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}

// Value stores the set as a JSON array.
func (s IDSet) Value() (driver.Value, error) {
	b, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *IDSet) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*s = IDSet{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("idset: unsupported scan type %T", value)
	}
	if len(data) == 0 {
		*s = IDSet{}
		return nil
	}
	return s.UnmarshalJSON(data)
}

func (IDSet) GormDataType() string {
	return "json"
}

func (IDSet) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonColumnType(db)
}

func jsonColumnType(db *gorm.DB) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "JSONB"
	case "mysql":
		return "JSON"
	default:
		return "TEXT"
	}
}
