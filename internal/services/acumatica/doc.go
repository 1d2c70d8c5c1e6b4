// Package acumatica talks to the order-management REST endpoint.
//
// A Client owns one cookie session: Login stores the session cookie issued by
// auth/login/, Submit reuses it for every request and Logout posts to
// auth/logout/ and drops it. Login and Logout accept only 200, 201 and 204;
// anything else is an AuthError carrying the response body.
package acumatica
