// Package model contains the value types shared by every bootstrap
// component: the cluster session and the layout of its coordination
// artifacts, the leader address record, per-node resource allocations and
// node roles.
//
// All types are plain values. Records persisted under the session workdir are
// written once by a single role and only read afterwards, so none of the
// types carry synchronisation of their own.
package model
