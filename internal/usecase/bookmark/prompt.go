package bookmark

import (
	"fmt"
	"strings"

	dombm "github.com/kailas-cloud/lodrag/internal/domain/bookmark"
)

const textPromptTemplate = `다음은 어둠의전설 게임 관련 게시글입니다.
아래 JSON 형식으로 책갈피를 생성해주세요.
게임 고유 용어(직업명, 스킬명, 아이템명 등)는 절대 바꾸지 마세요.

출력 형식 (JSON만 출력, 다른 텍스트 없이):
{
  "summary": "핵심 내용 3문장 이내 요약",
  "keywords": ["키워드1", "키워드2", "키워드3", ...],
  "category_tags": ["%s 중 해당하는 것"]
}

제목: %s
게시판: %s
본문:
%s`

const visionPromptTemplate = `다음은 어둠의전설 게임 관련 게시글입니다.
첨부된 이미지와 본문을 모두 참고하여 책갈피를 생성해주세요.
이미지에 스킬트리, 아이템 스탯, 지도, 스크린샷 등이 있다면 핵심 정보를 추출하세요.
게임 고유 용어(직업명, 스킬명, 아이템명 등)는 절대 바꾸지 마세요.

출력 형식 (JSON만 출력, 다른 텍스트 없이):
{
  "summary": "핵심 내용 3문장 이내 요약 (이미지 정보 포함)",
  "keywords": ["키워드1", "키워드2", "키워드3", ...],
  "category_tags": ["%s 중 해당하는 것"],
  "image_descriptions": ["이미지1 설명: 무엇이 보이는지 구체적으로", "이미지2 설명: ..."]
}

제목: %s
게시판: %s
본문:
%s`

func buildPrompt(vision bool, title, board, content string) string {
	tmpl := textPromptTemplate
	if vision {
		tmpl = visionPromptTemplate
	}
	return fmt.Sprintf(tmpl, strings.Join(dombm.Categories(), "|"), title, board, content)
}
