// Package cinder holds the block storage modules: the file backed LVM volume
// group used by the cinder LVM driver and volume types with their encryption.
package cinder
