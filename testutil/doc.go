/*
Package testutil provides fixtures for namereg tests.

	pub, priv := testutil.GenerateTestKeyPair(t)

	// Register a fresh key with anything that accepts registrations
	priv := testutil.RegisterTestUser(t, reg, "alice")

	// Signed updates, optionally at a fixed time
	msg := testutil.SignedUpdate(t, priv, "alice", "doc1")
	msg = testutil.SignedUpdate(t, priv, "alice", "doc1", testutil.At(testutil.FixedTime))

This package is intended for tests only.
*/
package testutil
