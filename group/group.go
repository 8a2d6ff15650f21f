// Package group 把过滤后的 relay 按分组键切分。
package group

import (
	"github.com/rushteam/relaykit/core"
)

// Key 是分组键。未分组时 Fingerprint 即键；按国家/AS 分组时对应字段缺失为空字符串。
type Key struct {
	Fingerprint string
	Country     string
	ASNumber    string
}

// Group 是共享同一分组键的 relay，成员保持插入顺序。
type Group struct {
	Key    Key
	Relays []*core.Relay
}

// Grouper 按 core.GroupMode 计算分组键。
type Grouper struct {
	Mode core.GroupMode
}

func New(mode core.GroupMode) *Grouper {
	return &Grouper{Mode: mode}
}

// KeyOf 返回 relay 的分组键。
func (g *Grouper) KeyOf(relay *core.Relay) Key {
	switch g.Mode {
	case core.GroupCountry:
		return Key{Country: relay.Country}
	case core.GroupAS:
		return Key{ASNumber: relay.ASNumber}
	case core.GroupCountryAS:
		return Key{Country: relay.Country, ASNumber: relay.ASNumber}
	default:
		return Key{Fingerprint: relay.Fingerprint}
	}
}

// Group 切分 relays。返回的分组按键首次出现的顺序排列
// （顺序对结果没有语义，只为输出稳定）。
func (g *Grouper) Group(relays []*core.Relay) []Group {
	index := make(map[Key]int)
	groups := make([]Group, 0)

	for _, r := range relays {
		if r == nil {
			continue
		}
		key := g.KeyOf(r)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Relays = append(groups[i].Relays, r)
	}
	return groups
}
