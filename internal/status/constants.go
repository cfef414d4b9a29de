// internal/status/constants.go
package status

// Drive Status Block layout constants.
// These values define the register map and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of registers per status block.
const SlotsPerDevice = 20

// ---- SLOT INDICES ----

// SlotHealthCode holds the drive health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the last transport error code.
const SlotLastErrorCode = 1

// SlotSecondsInError holds the duration (in seconds) the drive has been in error.
const SlotSecondsInError = 2

// SlotLastStatus holds the status byte of the last answered transaction.
const SlotLastStatus = 3

// SlotOpenSessions holds the number of open LUNs.
const SlotOpenSessions = 4

// SlotTransactionsHi and SlotTransactionsLo hold the 32-bit count of
// transactions addressed to this controller, high word first.
const SlotTransactionsHi = 5
const SlotTransactionsLo = 6

// SlotAborts holds the count of transactions aborted by a transport error.
const SlotAborts = 7

// SlotDeviceCode holds the drive's current device code.
const SlotDeviceCode = 8

// SlotLiveEnd is one past the last live slot.
const SlotLiveEnd = 9

// Slots 9-10 are reserved and stay zero.

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the device name.
// Device name is always placed at the END of the status block.
const SlotDeviceNameStart = 11

// SlotDeviceNameSlots is the number of slots reserved for the device name.
const SlotDeviceNameSlots = 8

// SlotDeviceNameEnd is the last slot used for the device name (inclusive).
const SlotDeviceNameEnd = SlotDeviceNameStart + SlotDeviceNameSlots - 1

// ---- LIMITS ----

// DeviceNameMaxChars is the maximum number of ASCII characters stored for device name.
const DeviceNameMaxChars = 16

// MaxSecondsInError is where seconds_in_error saturates.
const MaxSecondsInError = 65535

// ---- HEALTH CODES ----

// HealthUnknown represents the boot state, before any transaction.
const HealthUnknown uint16 = 0

// HealthOK represents a bus with clean transactions.
const HealthOK uint16 = 1

// HealthError represents a bus whose last transaction aborted.
const HealthError uint16 = 2
