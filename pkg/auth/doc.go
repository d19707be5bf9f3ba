// Package auth finds the signed-in Instagram session.
//
// A session is the ds_user_id and csrftoken cookies of https://www.instagram.com,
// plus sessionid when requests are made outside a browser. CredentialSource
// implementations read them from configuration, the environment, the system
// keychain, an encrypted file or a running Chrome; Chain tries several in
// order and DetectSession turns cookies into a Session or ErrSessionNotFound.
package auth
