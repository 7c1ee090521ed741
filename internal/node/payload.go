package node

import "strconv"

// StatusOnline is the only status the node ever reports. It says nothing about
// sensor or link health.
const StatusOnline = "online"

// EncodePayload renders the notification text:
//
//	{"temperature": 23.50, "humidity": 47.20, "macAddress": "AA:BB:CC:DD:EE:FF", "status": "online"}
//
// Field order and spacing are fixed and numbers carry two decimals. identity
// is written as-is; it is expected to be a colon separated hex address.
func EncodePayload(r Reading, identity string) []byte {
	b := make([]byte, 0, 96+len(identity))
	b = append(b, `{"temperature": `...)
	b = strconv.AppendFloat(b, float64(r.Temperature), 'f', 2, 32)
	b = append(b, `, "humidity": `...)
	b = strconv.AppendFloat(b, float64(r.Humidity), 'f', 2, 32)
	b = append(b, `, "macAddress": "`...)
	b = append(b, identity...)
	b = append(b, `", "status": "`...)
	b = append(b, StatusOnline...)
	b = append(b, `"}`...)
	return b
}
