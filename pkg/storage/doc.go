// Package storage lays out the crawl's output directory and writes media
// files into it.
//
// Every user gets users/<name>/{posts,stories,display_photo} and every tag
// gets tags/<tag>/{top,recent} below the output root. Media files are
// written to a temporary file in the target directory and renamed into
// place, so an interrupted download never leaves a truncated file under the
// final name.
//
// Usage:
//
//	layout, err := storage.New("./downloads")
//	if err != nil {
//	    return err
//	}
//	if err := layout.EnsureUserDirs("natgeo"); err != nil {
//	    return err
//	}
//	n, err := layout.SaveMedia(body, layout.UserPostsDir("natgeo"), "2021_03_04_05_06_07-abc.jpg")
package storage
