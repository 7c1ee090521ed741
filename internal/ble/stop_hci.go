//go:build hci || ninafw || cyw43439

package ble

// Stopping an advertisement on HCI stacks clears the local GATT table.
const stopDropsServices = true
