package prompts

const defaultChartingPrompt = `Bạn là một chuyên gia phân tích dữ liệu bằng Python.
Tôi có một file dữ liệu tên là '{{.FileName}}' (cột: {{.Columns}}).
Kiểu dữ liệu suy đoán của từng cột:
{{.Schema}}
Đây là {{.SampleRows}} dòng dữ liệu mẫu:
{{.Sample}}

Nhiệm vụ của bạn là:
1. Phân tích dữ liệu và đề xuất (tối đa {{.MaxCharts}}) biểu đồ hữu ích nhất.
2. Trả về một JSON ARRAY. Mỗi object trong array phải có 2 key:
   - "chart_title": Một string Tiêu đề tiếng Việt cho biểu đồ.
   - "python_code": Một string chứa code Python (dùng matplotlib) để vẽ biểu đồ đó.

Yêu cầu cho "python_code":
- Code PHẢI lưu file vào thư mục '{{.ChartFolder}}' bằng plt.savefig('{{.ChartFolder}}/<tên file>.png').
- Tên file PHẢI bắt đầu bằng '{{.SafeBaseName}}_'.
- Code PHẢI dùng plt.close() sau khi lưu.
- Code giả định biến 'df' (pandas DataFrame) đã tồn tại.

Hãy trả lời CHỈ với nội dung JSON, không có ` + "```json ... ```" + ` bao quanh.
`

const defaultReportPrompt = `Bạn là một nhà phân tích dữ liệu cấp cao, đang viết một báo cáo chuyên nghiệp.
Hãy phân tích tất cả {{.ChartCount}} biểu đồ được cung cấp.

Hãy viết một báo cáo TỔNG HỢP hoàn chỉnh (viết bằng kiểu Markdown), sử dụng văn phong, cấu trúc, và các đề mục từ văn bản mẫu dưới đây:
--- VĂN BẢN MẪU ---
{{.TemplateText}}
--- KẾT THÚC MẪU ---

--- QUY TẮC BẮT BUỘC ---
Đây là danh sách các biểu đồ bạn có thể sử dụng:
{{range .Charts}}- Tiêu đề: "{{.Title}}"
  Tag để chèn: [INSERT_CHART: {{.Path}}]
{{end}}
Khi bạn phân tích một biểu đồ và muốn nó hiển thị ngay sau đoạn văn bản đó,
hãy CHÈN NGUYÊN VẸN DÒNG 'Tag để chèn' (ví dụ: [INSERT_CHART: charts/ten_file.png]) vào một DÒNG RIÊNG.
Hãy sử dụng đúng định dạng Markdown (ví dụ: # Tiêu đề, ## Tiêu đề phụ, * Đề mục, **in đậm**).

QUAN TRỌNG: Bắt đầu báo cáo NGAY LẬP TỨC.
Phản hồi của bạn CHỈ được chứa nội dung báo cáo bằng Markdown.
KHÔNG viết bất kỳ lời chào, lời giới thiệu hay câu xác nhận nào (như 'Chắc chắn rồi...', 'Dưới đây là...').
Bắt đầu ngay với dòng tiêu đề (ví dụ: ` + "`# Báo cáo Phân tích`" + `).

Không được sao chép nội dung trong template vào bài report.
Có dự đoán cho thị trường trong 1 tháng tiếp theo.
Xác định chính xác ngày tháng trong file báo cáo dựa vào các thông tin dữ liệu.

Đây là các biểu đồ (dùng để xem):
`
