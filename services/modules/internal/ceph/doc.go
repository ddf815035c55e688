// Package ceph holds the modules that create pools and activate bcache backed
// OSDs through the ceph command line tools.
package ceph
