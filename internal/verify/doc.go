// SPDX-License-Identifier: MPL-2.0

// Package verify installs Python packages only after every downloaded
// artifact has been checked against the digests published by the package
// index and, when requested, against its detached OpenPGP signature.
//
// Artifacts are downloaded into a private staging directory, verified one by
// one, installed from that directory without touching the network, and the
// staging directory is removed on every exit path.
//
// A digest mismatch or a bad signature aborts the whole batch. Problems that
// only prevent a check from running (no signature published, key retrieval
// failure, index lookup failure) are counted as unchecked and reported.
package verify
