// Package cli implements the platerecon command-line client.
//
// Commands:
//
//	register                     create an account (prompts for details)
//	login [email|username]       obtain an access token and store it
//	logout                       forget the stored token
//	me                           show the logged-in user
//	status                       show whether the server has a model loaded
//	version                      print build information
//	reconstruct <image> [-o out] upload an image and save the reconstruction
//
// The access token is kept in the file named by --token-file with 0600
// permissions.
package cli
