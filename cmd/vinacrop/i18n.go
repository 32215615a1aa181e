// Package main provides localization for the vinacrop CLI.
package main

import (
	"github.com/alecthomas/kong"
	"github.com/ideamans/go-l10n"
)

// helpVars exposes translated help texts to kong tag interpolation.
func helpVars() kong.Vars {
	return kong.Vars{
		"export_help":  l10n.T("Crop a video to 1080x1920 with a caption and save it as MP4."),
		"preview_help": l10n.T("Render one composed frame as PNG."),
		"probe_help":   l10n.T("Show stream information of a video file."),
		"version_help": l10n.T("Show version information."),

		"input_help":          l10n.T("Source video file."),
		"output_dir_help":     l10n.T("Directory for the exported MP4 (default: current directory)."),
		"preview_output_help": l10n.T("Output PNG file path."),
		"at_help":             l10n.T("Source position of the preview frame (e.g. 1.5s)."),
		"config_help":         l10n.T("YAML configuration file."),
		"summary_help":        l10n.T("Output export summary to file (Markdown format)."),

		"text_help":       l10n.T("Caption text; words wrap automatically."),
		"font_size_help":  l10n.T("Caption font size in pixels (24-120)."),
		"font_color_help": l10n.T("Caption text color (hex, e.g., #ffffff)."),
		"bg_color_help":   l10n.T("Caption background color (hex, e.g., #000000)."),
		"bg_opacity_help": l10n.T("Caption background opacity (0-1)."),

		"ffmpeg_help":     l10n.T("Path to the ffmpeg executable."),
		"ffprobe_help":    l10n.T("Path to the ffprobe executable."),
		"bundle_url_help": l10n.T("Base URL to fetch the pinned ffmpeg bundle from."),

		"debug_help":     l10n.T("Enable debug output."),
		"debug_dir_help": l10n.T("Directory for debug output (default: ./debug)."),

		"log_level_help": l10n.T("Log level (debug, info, warn, error)."),
		"quiet_help":     l10n.T("Suppress all log output."),
	}
}

func init() {
	// Register Vietnamese translations for CLI messages.
	l10n.Register("vi", l10n.LexiconMap{
		// Flag groups
		"Caption":      "Chú thích",
		"Codec engine": "Bộ xử lý video",
		"Debug":        "Gỡ lỗi",
		"Logging":      "Nhật ký",

		// Root command
		"Crop videos to 1080x1920 with a caption and export them as MP4.": "Cắt video về khung dọc 1080x1920, thêm chú thích và xuất ra MP4.",

		// Commands
		"Crop a video to 1080x1920 with a caption and save it as MP4.": "Cắt video về 1080x1920 kèm chú thích và lưu thành MP4.",
		"Render one composed frame as PNG.":                            "Kết xuất một khung hình đã ghép thành PNG.",
		"Show stream information of a video file.":                     "Hiển thị thông tin luồng của tệp video.",
		"Show version information.":                                    "Hiển thị thông tin phiên bản.",
		"vinacrop (Go) version %s":                                     "vinacrop (bản Go) phiên bản %s",

		// Arguments and flags
		"Source video file.":                                           "Tệp video nguồn.",
		"Directory for the exported MP4 (default: current directory).": "Thư mục lưu tệp MP4 (mặc định: thư mục hiện tại).",
		"Output PNG file path.":                                        "Đường dẫn tệp PNG đầu ra.",
		"Source position of the preview frame (e.g. 1.5s).":            "Vị trí trong video nguồn của khung xem trước (ví dụ 1.5s).",
		"YAML configuration file.":                                     "Tệp cấu hình YAML.",
		"Output export summary to file (Markdown format).":             "Ghi bản tóm tắt xuất video ra tệp (định dạng Markdown).",
		"Caption text; words wrap automatically.":                      "Nội dung chú thích; tự động xuống dòng theo từ.",
		"Caption font size in pixels (24-120).":                        "Cỡ chữ chú thích tính bằng pixel (24-120).",
		"Caption text color (hex, e.g., #ffffff).":                     "Màu chữ chú thích (hex, ví dụ #ffffff).",
		"Caption background color (hex, e.g., #000000).":               "Màu nền chú thích (hex, ví dụ #000000).",
		"Caption background opacity (0-1).":                            "Độ mờ nền chú thích (0-1).",
		"Path to the ffmpeg executable.":                               "Đường dẫn tới tệp thực thi ffmpeg.",
		"Path to the ffprobe executable.":                              "Đường dẫn tới tệp thực thi ffprobe.",
		"Base URL to fetch the pinned ffmpeg bundle from.":             "URL gốc để tải gói ffmpeg đã ghim phiên bản.",
		"Enable debug output.":                                         "Bật đầu ra gỡ lỗi.",
		"Directory for debug output (default: ./debug).":               "Thư mục cho đầu ra gỡ lỗi (mặc định: ./debug).",
		"Log level (debug, info, warn, error).":                        "Mức nhật ký (debug, info, warn, error).",
		"Suppress all log output.":                                     "Tắt toàn bộ nhật ký.",

		// Runtime messages
		"Loading codec engine...":                        "Đang tải bộ xử lý video...",
		"Loaded %s (%dx%d, %s)":                          "Đã tải %s (%dx%d, %s)",
		"Converting: %d%%":                               "Đang chuyển đổi: %d%%",
		"Export failed: %v":                              "Xuất video thất bại: %v",
		"Done! The original-quality MP4 video is ready.": "Xong! Video MP4 chất lượng gốc đã sẵn sàng.",
		"Output saved to %s":                             "Đã lưu tệp tại %s",
		"Preview saved to %s":                            "Đã lưu ảnh xem trước tại %s",
		"Summary saved to %s":                            "Đã lưu bản tóm tắt tại %s",
		"Failed to write summary: %s":                    "Không ghi được bản tóm tắt: %s",
		"Interrupted, shutting down...":                  "Đã ngắt, đang dừng...",
		"No frame could be decoded":                      "Không giải mã được khung hình nào",

		// Probe output
		"File: %s":                                          "Tệp: %s",
		"Type: %s":                                          "Loại: %s",
		"Resolution: %dx%d":                                 "Độ phân giải: %dx%d",
		"Frame rate: %.2f fps":                              "Tốc độ khung hình: %.2f fps",
		"Duration: %s":                                      "Thời lượng: %s",
		"Video codec: %s":                                   "Codec video: %s",
		"Audio tracks: %d":                                  "Số luồng âm thanh: %d",
		"MP4 boxes: %s":                                     "Cấu trúc MP4: %s",
		"MP4 tracks: %d (video=%s audio=%s, fragmented=%t)": "Luồng MP4: %d (video=%s audio=%s, phân mảnh=%t)",
		"Ready for delivery: H.264 with AAC":                "Sẵn sàng phát hành: H.264 với AAC",

		// Summary content
		"Export Summary":     "Tóm tắt xuất video",
		"Export ID":          "Mã xuất",
		"Generated At":       "Thời điểm tạo",
		"Item":               "Mục",
		"Value":              "Giá trị",
		"Source":             "Nguồn",
		"File":               "Tệp",
		"Resolution":         "Độ phân giải",
		"Frame Rate":         "Tốc độ khung hình",
		"Duration":           "Thời lượng",
		"Video Codec":        "Codec video",
		"Audio Codec":        "Codec âm thanh",
		"Audio Tracks":       "Luồng âm thanh",
		"Unknown":            "Không rõ",
		"Text":               "Nội dung",
		"Font Size":          "Cỡ chữ",
		"Font Color":         "Màu chữ",
		"Background Color":   "Màu nền",
		"Background Opacity": "Độ mờ nền",
		"Recording":          "Ghi hình",
		"Container":          "Định dạng chứa",
		"Frames":             "Số khung hình",
		"Segments":           "Số phân đoạn",
		"Size":               "Dung lượng",
		"Audio":              "Âm thanh",
		"Output":             "Đầu ra",
		"Streams":            "Luồng",
		"Not inspected":      "Chưa kiểm tra",
		"None":               "Không có",
		"Conversion Time":    "Thời gian chuyển đổi",
		"Yes":                "Có",
		"No":                 "Không",
		"Generated by":       "Tạo bởi",
	})
}
