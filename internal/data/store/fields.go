package store

import (
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// VirtualFields lists the JSON names of fields tagged gorm:"-". They are
// resolved by the services and never persisted as columns.
func VirtualFields(t reflect.Type) []string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var out []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Tag.Get("gorm") != "-" {
			continue
		}
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "" {
			name = f.Name
		}
		out = append(out, name)
	}
	return out
}

// UniqueKey is a unique index declared through gorm tags. Fields hold JSON
// names in index priority order.
type UniqueKey struct {
	Name   string
	Fields []string
}

// UniqueKeys reads the uniqueIndex groups of t. An unnamed uniqueIndex gets
// gorm's default name idx_<table>_<column>.
func UniqueKeys(t reflect.Type, table string) []UniqueKey {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	type member struct {
		field    string
		priority int
		pos      int
	}
	groups := map[string][]member{}
	var names []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		settings := gormSettings(f.Tag.Get("gorm"))
		raw, ok := settings["UNIQUEINDEX"]
		if !ok {
			continue
		}
		jsonName := strings.Split(f.Tag.Get("json"), ",")[0]
		if jsonName == "" || jsonName == "-" {
			jsonName = f.Name
		}
		parts := strings.Split(raw, ",")
		name := strings.TrimSpace(parts[0])
		if name == "" {
			col := settings["COLUMN"]
			if col == "" {
				col = ToSnake(jsonName)
			}
			name = "idx_" + table + "_" + col
		}
		priority := 10
		for _, opt := range parts[1:] {
			if v, found := strings.CutPrefix(strings.TrimSpace(opt), "priority:"); found {
				if n, err := strconv.Atoi(v); err == nil {
					priority = n
				}
			}
		}
		if _, seen := groups[name]; !seen {
			names = append(names, name)
		}
		groups[name] = append(groups[name], member{field: jsonName, priority: priority, pos: i})
	}
	out := make([]UniqueKey, 0, len(names))
	for _, name := range names {
		members := groups[name]
		sort.SliceStable(members, func(i, j int) bool {
			if members[i].priority != members[j].priority {
				return members[i].priority < members[j].priority
			}
			return members[i].pos < members[j].pos
		})
		key := UniqueKey{Name: name}
		for _, m := range members {
			key.Fields = append(key.Fields, m.field)
		}
		out = append(out, key)
	}
	return out
}

// gormSettings splits a gorm tag into upper-cased keys, the way gorm's schema
// parser reads them. Bare flags map to "".
func gormSettings(tag string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, _ := strings.Cut(part, ":")
		out[strings.ToUpper(strings.TrimSpace(key))] = strings.TrimSpace(val)
	}
	return out
}
