// Package quorum provides coordination logic for semi-synchronous
// quorum writes. It handles fanout to followers, early resolution once
// enough acknowledgements arrive, and round timeout management.
package quorum
