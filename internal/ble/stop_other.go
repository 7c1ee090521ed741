//go:build !(hci || ninafw || cyw43439)

package ble

const stopDropsServices = false
