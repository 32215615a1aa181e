package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("vi", l10n.LexiconMap{
		// Session
		"Stage: %s -> %s":                "Trạng thái: %s -> %s",
		"State change ignored: %v":       "Bỏ qua thay đổi trạng thái: %v",
		"Export %s started":              "Bắt đầu xuất %s",
		"Loaded %s: %dx%d, %v":           "Đã tải %s: %dx%d, %v",
		"Failed to open %s: %v":          "Không mở được %s: %v",
		"Closing previous source: %v":    "Đóng video trước đó: %v",
		"Failed to encode state log: %v": "Không mã hóa được nhật ký trạng thái: %v",
		"Failed to save state log: %v":   "Không lưu được nhật ký trạng thái: %v",

		// User-facing messages
		"Enter your text here...":                                             "Nhập nội dung của bạn tại đây...",
		"Smart crop applied: the subject is centered automatically!":          "Đã áp dụng chế độ 'Cắt thông minh' tự động căn giữa chủ thể!",
		"The video processing system is not ready yet. Please wait a moment.": "Hệ thống xử lý video chưa sẵn sàng. Vui lòng đợi giây lát.",
		"Could not start recording.":                                          "Không thể bắt đầu ghi hình.",
		"Recording failed.":                                                   "Có lỗi xảy ra",
		"Failed to convert to MP4.":                                           "Lỗi khi chuyển đổi sang MP4.",
		"Failed to save the video.":                                           "Không lưu được video.",

		// Render loop
		"Render loop started at %v per frame": "Vòng vẽ bắt đầu, %v mỗi khung hình",
		"Render loop stopped after %d frames": "Vòng vẽ dừng sau %d khung hình",

		// Codec engine
		"Loading codec engine":             "Đang tải bộ xử lý video",
		"Codec engine ready: %s":           "Bộ xử lý video sẵn sàng: %s",
		"Codec engine failed to load: %v":  "Không tải được bộ xử lý video: %v",
		"Fetching codec engine %s from %s": "Đang tải bộ xử lý video %s từ %s",
		"Fetched %s (%d bytes)":            "Đã tải %s (%d byte)",
		"Using cached bundle %s":           "Dùng gói đã lưu %s",
		"Engine exec: ffmpeg %s":           "Chạy: ffmpeg %s",
		"Failed to delete %s: %v":          "Không xóa được %s: %v",

		// Source
		"Source probed: %dx%d %.2f fps, %s, %d audio track(s)": "Đã đọc nguồn: %dx%d %.2f fps, %s, %d luồng âm thanh",
		"Decoder stopped: %v":                                  "Bộ giải mã dừng: %v",
		"Decoder stopped: %v: %s":                              "Bộ giải mã dừng: %v: %s",

		// Capture
		"Capture started: %s at %.0f fps":                          "Bắt đầu ghi: %s ở %.0f fps",
		"Capture finished: %d frames, %d segments, %d bytes in %v": "Ghi xong: %d khung hình, %d phân đoạn, %d byte trong %v",
		"Preferred recorder type %s unavailable, using %s":         "Không hỗ trợ định dạng %s, dùng %s",
		"Source has no audio track, recording video only":          "Video nguồn không có âm thanh, chỉ ghi hình",
		"Recorder started: %s %dx%d @ %.0f fps":                    "Bộ ghi bắt đầu: %s %dx%d @ %.0f fps",
		"Recorder stopped: %d frames, %d segments":                 "Bộ ghi dừng: %d khung hình, %d phân đoạn",
		"Recorder stop after failure: %v":                          "Dừng bộ ghi sau lỗi: %v",
		"Failed to save recording: %v":                             "Không lưu được bản ghi: %v",

		// Composite
		"Compositing %d frames with %d workers": "Đang ghép %d khung hình với %d luồng xử lý",
		"Composition completed":                 "Ghép khung hình hoàn tất",
		"Failed to save composed frame %d: %v":  "Không lưu được khung hình đã ghép %d: %v",

		// Transcode
		"Transcoding %d bytes: %v":           "Đang chuyển mã %d byte: %v",
		"Transcode finished: %d bytes in %v": "Chuyển mã xong: %d byte trong %v",
		"Transcode failed at %s: %v":         "Chuyển mã lỗi ở bước %s: %v",

		// Export
		"Recording %s (%v)":                        "Đang ghi %s (%v)",
		"Recording failed: %v":                     "Ghi hình thất bại: %v",
		"Recording completed: %d frames, %d bytes": "Ghi hình hoàn tất: %d khung hình, %d byte",
		"Converting to MP4":                        "Đang chuyển đổi sang MP4",
		"Conversion failed: %v":                    "Chuyển đổi thất bại: %v",
		"Could not inspect output: %v":             "Không kiểm tra được tệp đầu ra: %v",
		"Output streams: video=%s audio=%s %dx%d":  "Luồng đầu ra: video=%s audio=%s %dx%d",
		"Output has no audio track":                "Tệp đầu ra không có âm thanh",
		"Failed to write output: %v":               "Không ghi được tệp đầu ra: %v",
		"Saved %s (%d bytes)":                      "Đã lưu %s (%d byte)",
	})
}
