package cache

import (
	"sort"
	"time"

	"github.com/cuemby/akdstore/pkg/record"
)

type bornKey struct {
	key  record.Key
	born time.Time
}

func sortByBorn(items []bornKey) {
	sort.Slice(items, func(i, j int) bool { return items[i].born.Before(items[j].born) })
}
