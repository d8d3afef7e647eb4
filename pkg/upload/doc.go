// Package upload stores profile images with the image hosting service.
//
// Large binary uploads do not belong on the session WebSocket, where they
// would block heartbeats and the event loop. The browser POSTs the image
// to the upload handler instead, receives its public URL and sends that URL
// back over the WebSocket as a profile change:
//
//  1. User selects an image in <input type="file">
//  2. Browser POSTs it to /uploads/avatar
//  3. The handler checks size and sniffed type, stores it and returns {"url": ...}
//  4. Browser sends a "profile.avatar" intent with the URL
//
// # Stores
//
//   - DiskStore writes below a local directory (development)
//   - S3Store uses aws-sdk-go-v2 against AWS S3 or any S3-compatible host
//   - MinioStore uses minio-go against a MinIO deployment
//
// # Security
//
// The content type is detected from the bytes (http.DetectContentType).
// The part's Content-Type header and the file name are not trusted; object
// keys are random.
package upload
