package domain

import "strconv"

// Domain contains core models shared by the relay components.

// AssetTuple records that a service/plugin pair produced or consumed an asset for an event.
type AssetTuple struct {
	Service    string `json:"service"`
	Plugin     string `json:"plugin"`
	Asset      string `json:"asset"`
	Event      string `json:"event"`
	Deprecated bool   `json:"deprecated,omitempty"`
	Datapoints string `json:"datapoints,omitempty"`
	MaxCount   uint   `json:"max_count,omitempty"`
}

// Key identifies the tuple. Deprecation, datapoints and count do not take part in identity.
func (t AssetTuple) Key() string {
	return t.Service + "\x00" + t.Plugin + "\x00" + t.Asset + "\x00" + t.Event
}

// String renders the tuple for logs.
func (t AssetTuple) String() string {
	s := "service:" + t.Service + ",plugin:" + t.Plugin + ",asset:" + t.Asset + ",event:" + t.Event
	if t.Datapoints != "" || t.MaxCount > 0 {
		s += "." + t.Datapoints + "." + strconv.FormatUint(uint64(t.MaxCount), 10)
	}
	return s
}
