// Package password hashes and verifies user credentials.
//
// # Output formats
//
// [Argon2] produces PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Bcrypt] produces standard $2a$/$2b$ hashes. [Multi] hashes with one scheme and
// verifies against any registered scheme, so credentials written by an older
// deployment keep working and can be re-hashed on the next successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Log plaintext passwords or hash material.
package password
