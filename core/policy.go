package core

import (
	"strconv"
	"strings"
)

// PortRange 是闭区间 [Lo, Hi]。
type PortRange struct {
	Lo, Hi int
}

// PortRanges 是端口列表展开后的区间集合。
type PortRanges []PortRange

// Contains 判断 port 是否落在任一区间内。
func (rs PortRanges) Contains(port int) bool {
	for _, r := range rs {
		if port >= r.Lo && port <= r.Hi {
			return true
		}
	}
	return false
}

// ParsePortRanges 解析 "80" / "1000-2000" 形式的端口项。
func ParsePortRanges(specs []string) (PortRanges, bool) {
	out := make(PortRanges, 0, len(specs))
	for _, spec := range specs {
		r, ok := ParsePortRange(spec)
		if !ok {
			return nil, false
		}
		out = append(out, r)
	}
	return out, true
}

// ParsePortRange 解析单个端口项。
func ParsePortRange(spec string) (PortRange, bool) {
	spec = strings.TrimSpace(spec)
	lo, hi, isRange := strings.Cut(spec, "-")
	a, err := strconv.Atoi(lo)
	if err != nil || a < 0 || a > 65535 {
		return PortRange{}, false
	}
	if !isRange {
		return PortRange{Lo: a, Hi: a}, true
	}
	b, err := strconv.Atoi(hi)
	if err != nil || b < a || b > 65535 {
		return PortRange{}, false
	}
	return PortRange{Lo: a, Hi: b}, true
}
