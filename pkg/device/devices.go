package device

import "encoding/json"

// Devices is an ordered collection of devices. Duplicates are kept.
type Devices struct {
	items []*Device
}

// NewDevices builds a collection from one or more devices, in order.
// A slice can be passed with NewDevices(list...). Nil entries are dropped.
func NewDevices(devices ...*Device) *Devices {
	c := &Devices{items: make([]*Device, 0, len(devices))}
	for _, d := range devices {
		c.Add(d)
	}
	return c
}

// Add appends a device to the end of the collection.
func (c *Devices) Add(d *Device) {
	if d == nil {
		return
	}
	c.items = append(c.items, d)
}

// All returns every device in insertion order.
func (c *Devices) All() []*Device {
	return c.items
}

func (c *Devices) Len() int {
	return len(c.items)
}

// Keys returns the device keys registered for platform p, in order.
func (c *Devices) Keys(p Platform) []string {
	var keys []string
	for _, d := range c.items {
		if d.platform == p {
			keys = append(keys, d.key)
		}
	}
	return keys
}

func (c *Devices) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.items)
}

func (c *Devices) UnmarshalJSON(data []byte) error {
	var items []*Device
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	c.items = c.items[:0]
	for _, d := range items {
		c.Add(d)
	}
	return nil
}
