package views

import "github.com/vango-dev/gigmarket/pkg/resource"

// Read-model keys. A change invalidates the keys of the data it alters;
// every view holding a resource under such a key refetches.

func profileKey(userID string) resource.Key {
	return resource.KeyOf("users", userID, "profile")
}

func documentsKey(userID string) resource.Key {
	return resource.KeyOf("users", userID, "documents")
}

func settingsKey(userID string) resource.Key {
	return resource.KeyOf("users", userID, "settings")
}

func notificationsKey(userID string) resource.Key {
	return resource.KeyOf("users", userID, "notifications")
}

const listingsKey resource.Key = "listings"

func listingKey(id string) resource.Key {
	return resource.KeyOf(string(listingsKey), id)
}
