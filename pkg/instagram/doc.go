// Package instagram knows the site: page and structured-data URLs, the DOM
// selectors the crawler drives, the JSON documents behind profiles and
// posts, and an HTTP client for the requests that do not need the browser.
//
// Post links are identified by their canonical form, see CanonicalPostURL.
// Structured data can be read anonymously through Client or through the
// logged-in browser session with TabSource; both expose UserID and PostInfo.
package instagram
