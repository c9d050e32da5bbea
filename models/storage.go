package models

import "path"

// FileUploadResponse is returned after a successful upload
type FileUploadResponse struct {
	Message   string `json:"message"`
	Path      string `json:"path"`
	PublicURL string `json:"public_url"`
}

// StorageFileInfo describes a stored file owned by the current user
type StorageFileInfo struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	CreatedAt string `json:"created_at"`
	PublicURL string `json:"public_url"`
}

// UserObjectPath returns the storage path of a file inside the user's folder
func UserObjectPath(userID, filename string) string {
	return userID + "/" + path.Base(filename)
}
